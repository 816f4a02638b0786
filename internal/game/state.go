package game

import (
	"math/rand"
)

// Side identifies one of the four walls of the square arena, or a spectator.
type Side string

const (
	SideLeft      Side = "left"
	SideRight     Side = "right"
	SideTop       Side = "top"
	SideBottom    Side = "bottom"
	SideSpectator Side = "spectator"
)

// SeatOrder is the fixed priority in which joining players receive a wall.
// Right comes first; the first right-seated player also becomes gamemaster.
var SeatOrder = [4]Side{SideRight, SideLeft, SideTop, SideBottom}

// Directional reports whether the side is one of the four walls.
func (s Side) Directional() bool {
	switch s {
	case SideLeft, SideRight, SideTop, SideBottom:
		return true
	}
	return false
}

// Opposite returns the facing wall (left↔right, top↔bottom).
func Opposite(s Side) Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	}
	return ""
}

type PickupType string

const (
	PickupSpeed   PickupType = "speed"
	PickupSize    PickupType = "size"
	PickupReverse PickupType = "reverse"
	PickupDrunk   PickupType = "drunk"
	PickupFreeze  PickupType = "freeze"
	// Declared but inert: no spawn weight, no apply, no reversal.
	PickupTeleport PickupType = "teleport"
	PickupPaddle   PickupType = "paddle"
	PickupCoins    PickupType = "coins"
)

// spawnablePickups carries the types the scheduler actually rolls.
var spawnablePickups = []PickupType{PickupSpeed, PickupSize, PickupReverse, PickupDrunk, PickupFreeze}

const (
	DefaultCanvasSize = 800.0

	PaddleInset     = 30.0
	PaddleThickness = 12.0
	PaddleLength    = 110.0

	BallSize        = 16.0
	BallBaseSpeed   = 4.0
	BallSpeedJitter = 0.6
	MaxBallSize     = 48.0

	// MaxBounceDeviation scales the perpendicular component a paddle hit
	// imparts, from the normalized hit offset in −1..1.
	MaxBounceDeviation = 5.0

	// GoalOvershoot is how far past a wall the ball must travel before the
	// crossing counts as a goal.
	GoalOvershoot = 20.0

	WinScore = 3

	MaxPickups     = 3
	PickupDiameter = 24.0
	// PickupMargin keeps spawns away from the walls and paddle lanes.
	PickupMargin = 60.0

	// Times on the wire are epoch milliseconds, matching the browser client.
	EffectDurationMs  = 5000
	PickupSpawnMaxMs  = 8000
	PickupSpawnMinMs  = 4000
	PickupSpawnRampMs = 60000
	PickupFlashMs     = 500
	RumbleDurationMs  = 400

	SpeedFactor = 1.5
	SizeFactor  = 1.5
)

// Ball is the single moving object of a match. Position is the center.
type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	Size         float64 `json:"size"`
	OriginalSize float64 `json:"originalSize"`

	IsDrunk    bool    `json:"isDrunk"`
	DrunkAngle float64 `json:"drunkAngle"`

	// Teleport/stuck bookkeeping. The teleport pickup is inert, but the
	// fields are part of the client-facing model.
	IsTeleporting bool  `json:"isTeleporting"`
	StuckSince    int64 `json:"stuckSince"`

	// The last two distinct sides that touched the ball, newest first.
	// Used to resolve self-goals.
	LastTouchedBy     Side `json:"lastTouchedBy,omitempty"`
	PreviousTouchedBy Side `json:"previousTouchedBy,omitempty"`
}

// Paddle is one wall's paddle. Position is the center of the paddle along
// its wall axis (y for left/right, x for top/bottom).
type Paddle struct {
	Position     float64 `json:"position"`
	Size         float64 `json:"size"`
	Velocity     float64 `json:"velocity"`
	Target       float64 `json:"target"`
	OriginalSize float64 `json:"originalSize"`
}

// Pickup is a collectible sitting on the field until the ball runs it over.
type Pickup struct {
	ID        string     `json:"id"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Type      PickupType `json:"type"`
	SpawnTime int64      `json:"spawnTime"`
	Size      float64    `json:"size"`
}

// Coin is present in the model but not driven by any spawn or score logic.
type Coin struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value int     `json:"value"`
}

// ActiveEffect is a timed modifier currently applied to the ball or paddles.
type ActiveEffect struct {
	Type      PickupType `json:"type"`
	StartTime int64      `json:"startTime"`
	Duration  int64      `json:"duration"`
}

// Expired reports whether the effect's window has elapsed at now.
func (e ActiveEffect) Expired(now int64) bool {
	return now >= e.StartTime+e.Duration
}

// TransientEffect is a short client animation cue (pickup flash, rumble),
// cleared by the server once its duration elapses.
type TransientEffect struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	StartTime int64   `json:"startTime"`
	Duration  int64   `json:"duration"`
}

func (e *TransientEffect) Expired(now int64) bool {
	return e == nil || now >= e.StartTime+e.Duration
}

// State is the full game state of one room. It is owned by its room and only
// ever mutated under the room's lock.
type State struct {
	Ball    Ball             `json:"ball"`
	Paddles map[Side]*Paddle `json:"paddles"`
	Score   map[Side]int     `json:"score"`

	IsPlaying       bool  `json:"isPlaying"`
	ShowStartScreen bool  `json:"showStartScreen"`
	IsPaused        bool  `json:"isPaused"`
	PauseEndTime    int64 `json:"pauseEndTime"`
	Winner          Side  `json:"winner,omitempty"`
	GameEnded       bool  `json:"gameEnded"`

	Pickups       []Pickup       `json:"pickups"`
	Coins         []Coin         `json:"coins"`
	ActiveEffects []ActiveEffect `json:"activeEffects"`

	PickupEffect *TransientEffect `json:"pickupEffect,omitempty"`
	RumbleEffect *TransientEffect `json:"rumbleEffect,omitempty"`

	CanvasSize float64 `json:"canvasSize"`

	// Spawn scheduler bookkeeping, server-internal.
	startedAt    int64
	nextPickupAt int64
}

// NewState builds the initial state for a room: ball centered with a random
// diagonal velocity, paddles centered, scores zero, waiting on the start
// screen.
func NewState(canvasSize float64) *State {
	if canvasSize <= 0 {
		canvasSize = DefaultCanvasSize
	}

	s := &State{
		Paddles: make(map[Side]*Paddle, 4),
		Score:   make(map[Side]int, 4),

		ShowStartScreen: true,

		Pickups:       []Pickup{},
		Coins:         []Coin{},
		ActiveEffects: []ActiveEffect{},

		CanvasSize: canvasSize,
	}

	for _, side := range SeatOrder {
		s.Paddles[side] = &Paddle{
			Position:     canvasSize / 2,
			Size:         PaddleLength,
			OriginalSize: PaddleLength,
			Target:       canvasSize / 2,
		}
		s.Score[side] = 0
	}

	s.ResetBall()
	return s
}

// ResetBall recenters the ball with a fresh randomized diagonal velocity and
// clears the touch history.
func (s *State) ResetBall() {
	vx, vy := randomDiagonalVelocity()
	s.Ball = Ball{
		X:            s.CanvasSize / 2,
		Y:            s.CanvasSize / 2,
		VX:           vx,
		VY:           vy,
		Size:         BallSize,
		OriginalSize: BallSize,
	}
}

// randomDiagonalVelocity picks per-axis magnitudes near the base speed with
// random signs, so the ball never leaves the center on a pure axis line.
func randomDiagonalVelocity() (float64, float64) {
	vx := BallBaseSpeed*0.6 + rand.Float64()*BallBaseSpeed*0.4
	vy := BallBaseSpeed*0.6 + rand.Float64()*BallBaseSpeed*0.4
	if rand.Intn(2) == 0 {
		vx = -vx
	}
	if rand.Intn(2) == 0 {
		vy = -vy
	}
	return vx, vy
}

// ExpirePause clears isPaused once pauseEndTime has passed. Returns true when
// the state changed.
func (s *State) ExpirePause(now int64) bool {
	if s.IsPaused && s.PauseEndTime > 0 && now >= s.PauseEndTime {
		s.IsPaused = false
		s.PauseEndTime = 0
		return true
	}
	return false
}

// CheckWin ends the match if any side has reached the winning score. It also
// covers scores written directly by a gamemaster delta.
func CheckWin(s *State) bool {
	if s.GameEnded {
		return false
	}
	for _, side := range SeatOrder {
		if s.Score[side] >= WinScore {
			s.Winner = side
			s.GameEnded = true
			s.IsPlaying = false
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to marshal outside the room lock.
func (s *State) Clone() *State {
	c := *s

	c.Paddles = make(map[Side]*Paddle, len(s.Paddles))
	for side, p := range s.Paddles {
		cp := *p
		c.Paddles[side] = &cp
	}

	c.Score = make(map[Side]int, len(s.Score))
	for side, v := range s.Score {
		c.Score[side] = v
	}

	c.Pickups = append([]Pickup(nil), s.Pickups...)
	c.Coins = append([]Coin(nil), s.Coins...)
	c.ActiveEffects = append([]ActiveEffect(nil), s.ActiveEffects...)

	if s.PickupEffect != nil {
		pe := *s.PickupEffect
		c.PickupEffect = &pe
	}
	if s.RumbleEffect != nil {
		re := *s.RumbleEffect
		c.RumbleEffect = &re
	}

	return &c
}

// Normalize repairs a state that arrived over the wire (full update from the
// gamemaster): missing containers are recreated so the tick path never sees
// nil maps.
func (s *State) Normalize(canvasSize float64) {
	if s.CanvasSize <= 0 {
		s.CanvasSize = canvasSize
	}
	if s.Paddles == nil {
		s.Paddles = make(map[Side]*Paddle, 4)
	}
	for _, side := range SeatOrder {
		if s.Paddles[side] == nil {
			s.Paddles[side] = &Paddle{
				Position:     s.CanvasSize / 2,
				Size:         PaddleLength,
				OriginalSize: PaddleLength,
				Target:       s.CanvasSize / 2,
			}
		}
	}
	if s.Score == nil {
		s.Score = make(map[Side]int, 4)
	}
	if s.Pickups == nil {
		s.Pickups = []Pickup{}
	}
	if s.Coins == nil {
		s.Coins = []Coin{}
	}
	if s.ActiveEffects == nil {
		s.ActiveEffects = []ActiveEffect{}
	}
}
