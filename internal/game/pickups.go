package game

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// UpdatePickups runs one tick of the pickup subsystem: spawn when due,
// collect on ball contact, expire finished effects. Returns true when
// anything observable changed.
func UpdatePickups(s *State, now int64) bool {
	changed := false

	if s.startedAt == 0 {
		// First playing tick: anchor the spawn ramp.
		s.startedAt = now
		s.nextPickupAt = now + PickupSpawnMaxMs
	}

	if len(s.Pickups) < MaxPickups && now >= s.nextPickupAt {
		s.Pickups = append(s.Pickups, spawnPickup(now, s.CanvasSize))
		s.nextPickupAt = now + spawnInterval(now-s.startedAt)
		changed = true
	}

	if collectPickups(s, now) {
		changed = true
	}

	if expireEffects(s, now) {
		changed = true
	}

	return changed
}

// spawnInterval shrinks linearly from the max toward the min over the first
// minute of play, then stays at the floor.
func spawnInterval(elapsed int64) int64 {
	if elapsed >= PickupSpawnRampMs {
		return PickupSpawnMinMs
	}
	span := float64(PickupSpawnMaxMs - PickupSpawnMinMs)
	return PickupSpawnMaxMs - int64(span*float64(elapsed)/float64(PickupSpawnRampMs))
}

func spawnPickup(now int64, canvasSize float64) Pickup {
	return Pickup{
		ID:        uuid.New().String(),
		X:         PickupMargin + rand.Float64()*(canvasSize-2*PickupMargin),
		Y:         PickupMargin + rand.Float64()*(canvasSize-2*PickupMargin),
		Type:      spawnablePickups[rand.Intn(len(spawnablePickups))],
		SpawnTime: now,
		Size:      PickupDiameter,
	}
}

// collectPickups removes every pickup the ball is touching, applying its
// immediate effect and registering the timed entry.
func collectPickups(s *State, now int64) bool {
	collected := false
	for i := len(s.Pickups) - 1; i >= 0; i-- {
		p := s.Pickups[i]
		if !ballTouchesPickup(&s.Ball, p) {
			continue
		}

		s.Pickups = append(s.Pickups[:i], s.Pickups[i+1:]...)
		s.ActiveEffects = append(s.ActiveEffects, ActiveEffect{
			Type:      p.Type,
			StartTime: now,
			Duration:  EffectDurationMs,
		})
		s.PickupEffect = &TransientEffect{
			X:         p.X,
			Y:         p.Y,
			StartTime: now,
			Duration:  PickupFlashMs,
		}
		applyEffect(s, p.Type)
		collected = true
	}
	return collected
}

// ballTouchesPickup uses a circle test: collected when the centers are closer
// than half the sum of the sizes.
func ballTouchesPickup(b *Ball, p Pickup) bool {
	dx := b.X - p.X
	dy := b.Y - p.Y
	return math.Hypot(dx, dy) < (b.Size+p.Size)/2
}

// applyEffect is the collect-time action per type. Types without an entry
// here (teleport, paddle, coins) are declared but intentionally inert.
func applyEffect(s *State, t PickupType) {
	switch t {
	case PickupSpeed:
		s.Ball.VX *= SpeedFactor
		s.Ball.VY *= SpeedFactor
	case PickupSize:
		s.Ball.Size = math.Min(s.Ball.Size*SizeFactor, MaxBallSize)
	case PickupReverse:
		s.Ball.VX = -s.Ball.VX
		s.Ball.VY = -s.Ball.VY
	case PickupDrunk:
		s.Ball.IsDrunk = true
	case PickupFreeze:
		for _, paddle := range s.Paddles {
			paddle.Velocity = 0
		}
	}
}

// expireEffects drops effects whose window has elapsed, reversing the two
// types that have a reversal (size and drunk), and clears finished transient
// animation cues.
func expireEffects(s *State, now int64) bool {
	changed := false

	remaining := s.ActiveEffects[:0]
	for _, e := range s.ActiveEffects {
		if !e.Expired(now) {
			remaining = append(remaining, e)
			continue
		}
		reverseEffect(s, e.Type)
		changed = true
	}
	s.ActiveEffects = remaining

	if s.PickupEffect != nil && s.PickupEffect.Expired(now) {
		s.PickupEffect = nil
		changed = true
	}
	if s.RumbleEffect != nil && s.RumbleEffect.Expired(now) {
		s.RumbleEffect = nil
		changed = true
	}

	return changed
}

// reverseEffect undoes an effect on expiry. Speed, reverse and freeze are
// one-shot: they are not undone.
func reverseEffect(s *State, t PickupType) {
	switch t {
	case PickupSize:
		s.Ball.Size = s.Ball.OriginalSize
	case PickupDrunk:
		s.Ball.IsDrunk = false
		s.Ball.DrunkAngle = 0
	}
}
