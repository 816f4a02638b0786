package game

import (
	"math"
	"math/rand"
)

// Vec is a 2D point or velocity.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PaddleRect returns the rectangle a side's paddle occupies. Paddles sit at a
// fixed inset from their wall; the inner face is the edge the ball bounces
// off.
func PaddleRect(side Side, p *Paddle, canvasSize float64) Rect {
	half := p.Size / 2
	switch side {
	case SideLeft:
		return Rect{X: PaddleInset - PaddleThickness, Y: p.Position - half, W: PaddleThickness, H: p.Size}
	case SideRight:
		return Rect{X: canvasSize - PaddleInset, Y: p.Position - half, W: PaddleThickness, H: p.Size}
	case SideTop:
		return Rect{X: p.Position - half, Y: PaddleInset - PaddleThickness, W: p.Size, H: PaddleThickness}
	case SideBottom:
		return Rect{X: p.Position - half, Y: canvasSize - PaddleInset, W: p.Size, H: PaddleThickness}
	}
	return Rect{}
}

// BallHitsPaddle is the collision primitive of the whole simulation: it
// accepts a hit when either the ball's current box overlaps the paddle
// rectangle (zero tolerance), or the segment between the previous and current
// centers crosses it. The swept test is what stops a fast ball from tunneling
// through a thin paddle in a single tick.
func BallHitsPaddle(prev, cur Vec, size float64, paddle Rect) bool {
	half := size / 2
	if cur.X-half < paddle.X+paddle.W &&
		cur.X+half > paddle.X &&
		cur.Y-half < paddle.Y+paddle.H &&
		cur.Y+half > paddle.Y {
		return true
	}
	return segmentIntersectsRect(prev, cur, paddle)
}

// segmentIntersectsRect runs a Liang-Barsky clip of the segment against the
// rectangle.
func segmentIntersectsRect(a, b Vec, r Rect) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y

	tMin, tMax := 0.0, 1.0

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > tMax {
				return false
			}
			if t > tMin {
				tMin = t
			}
		} else {
			if t < tMin {
				return false
			}
			if t < tMax {
				tMax = t
			}
		}
		return true
	}

	return clip(-dx, a.X-r.X) &&
		clip(dx, r.X+r.W-a.X) &&
		clip(-dy, a.Y-r.Y) &&
		clip(dy, r.Y+r.H-a.Y)
}

// Step advances the ball one tick: move, bounce off paddles, score on wall
// crossings. Returns true when the state changed in a way clients can see.
func Step(s *State, now int64) bool {
	ball := &s.Ball

	prev := Vec{X: ball.X, Y: ball.Y}
	ball.X += ball.VX
	ball.Y += ball.VY
	cur := Vec{X: ball.X, Y: ball.Y}

	// A drunk ball counts even when parked: its angle advances below and
	// clients animate from it.
	changed := ball.VX != 0 || ball.VY != 0 || ball.IsDrunk

	if ball.IsDrunk {
		ball.DrunkAngle += 0.25
		if ball.DrunkAngle > 2*math.Pi {
			ball.DrunkAngle -= 2 * math.Pi
		}
	}

	for _, side := range SeatOrder {
		paddle := s.Paddles[side]
		if paddle == nil {
			continue
		}
		rect := PaddleRect(side, paddle, s.CanvasSize)
		if !movingToward(side, ball) || !prevBeyondFace(side, prev, rect) {
			continue
		}
		if BallHitsPaddle(prev, cur, ball.Size, rect) {
			bounce(side, ball, paddle, rect)
			changed = true
			break
		}
	}

	if crossed, ok := crossedWall(ball, s.CanvasSize); ok {
		scoreGoal(s, crossed)
		changed = true
	}

	return changed
}

// movingToward reports whether the ball's relevant velocity component points
// at the given wall. A hit against a paddle the ball is leaving is ignored.
func movingToward(side Side, b *Ball) bool {
	switch side {
	case SideLeft:
		return b.VX < 0
	case SideRight:
		return b.VX > 0
	case SideTop:
		return b.VY < 0
	case SideBottom:
		return b.VY > 0
	}
	return false
}

// prevBeyondFace requires the previous center to be strictly on the play-field
// side of the paddle face. This is what keeps a grazing contact from
// double-bouncing or passing through.
func prevBeyondFace(side Side, prev Vec, rect Rect) bool {
	switch side {
	case SideLeft:
		return prev.X > rect.X+rect.W
	case SideRight:
		return prev.X < rect.X
	case SideTop:
		return prev.Y > rect.Y+rect.H
	case SideBottom:
		return prev.Y < rect.Y
	}
	return false
}

// bounce reflects the wall-normal component with a little jitter, derives the
// perpendicular component from where along the paddle the ball struck, snaps
// the ball flush against the face, and records the touch.
func bounce(side Side, ball *Ball, paddle *Paddle, rect Rect) {
	jitter := rand.Float64() * BallSpeedJitter
	spin := (rand.Float64() - 0.5) * BallSpeedJitter

	switch side {
	case SideLeft:
		offset := hitOffset(ball.Y, paddle)
		ball.VX = math.Abs(ball.VX) + jitter
		ball.VY = offset*MaxBounceDeviation + spin
		ball.X = rect.X + rect.W + ball.Size/2
	case SideRight:
		offset := hitOffset(ball.Y, paddle)
		ball.VX = -(math.Abs(ball.VX) + jitter)
		ball.VY = offset*MaxBounceDeviation + spin
		ball.X = rect.X - ball.Size/2
	case SideTop:
		offset := hitOffset(ball.X, paddle)
		ball.VY = math.Abs(ball.VY) + jitter
		ball.VX = offset*MaxBounceDeviation + spin
		ball.Y = rect.Y + rect.H + ball.Size/2
	case SideBottom:
		offset := hitOffset(ball.X, paddle)
		ball.VY = -(math.Abs(ball.VY) + jitter)
		ball.VX = offset*MaxBounceDeviation + spin
		ball.Y = rect.Y - ball.Size/2
	}

	ball.Touch(side)
}

// hitOffset normalizes where the ball struck along the paddle to −1..1.
func hitOffset(ballAxis float64, paddle *Paddle) float64 {
	offset := (ballAxis - paddle.Position) / (paddle.Size / 2)
	return math.Max(-1, math.Min(1, offset))
}

// Touch records a paddle contact, keeping the last two distinct sides.
func (b *Ball) Touch(side Side) {
	if b.LastTouchedBy != side {
		b.PreviousTouchedBy = b.LastTouchedBy
	}
	b.LastTouchedBy = side
}

// crossedWall reports which wall, if any, the ball has left through.
func crossedWall(b *Ball, canvasSize float64) (Side, bool) {
	switch {
	case b.X < -GoalOvershoot:
		return SideLeft, true
	case b.X > canvasSize+GoalOvershoot:
		return SideRight, true
	case b.Y < -GoalOvershoot:
		return SideTop, true
	case b.Y > canvasSize+GoalOvershoot:
		return SideBottom, true
	}
	return "", false
}

// scoreGoal credits the goal, ends the match at the winning score, and
// otherwise serves a fresh ball.
func scoreGoal(s *State, crossed Side) {
	scorer := resolveScorer(&s.Ball, crossed)
	s.Score[scorer]++

	if CheckWin(s) {
		return
	}
	s.ResetBall()
}

// resolveScorer applies the scoring tie-breaks: the last toucher scores a
// normal goal; a self-goal is credited to the previous toucher; with no touch
// history the wall opposite the crossing scores by convention.
func resolveScorer(b *Ball, crossed Side) Side {
	switch {
	case b.LastTouchedBy != "" && b.LastTouchedBy != crossed:
		return b.LastTouchedBy
	case b.LastTouchedBy == crossed && b.PreviousTouchedBy != "":
		return b.PreviousTouchedBy
	default:
		return Opposite(crossed)
	}
}
