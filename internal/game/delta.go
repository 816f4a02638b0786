package game

// BallDelta is a partial ball patch. Only fields present in the payload are
// written, so a paddle-side client merging the same delta converges on the
// same ball.
type BallDelta struct {
	X  *float64 `json:"x,omitempty"`
	Y  *float64 `json:"y,omitempty"`
	VX *float64 `json:"vx,omitempty"`
	VY *float64 `json:"vy,omitempty"`

	Size         *float64 `json:"size,omitempty"`
	OriginalSize *float64 `json:"originalSize,omitempty"`

	IsDrunk    *bool    `json:"isDrunk,omitempty"`
	DrunkAngle *float64 `json:"drunkAngle,omitempty"`

	IsTeleporting *bool  `json:"isTeleporting,omitempty"`
	StuckSince    *int64 `json:"stuckSince,omitempty"`

	LastTouchedBy     *Side `json:"lastTouchedBy,omitempty"`
	PreviousTouchedBy *Side `json:"previousTouchedBy,omitempty"`
}

// Delta is a partial game-state patch issued by the gamemaster. The ball is
// shallow-merged field by field; every other section is replaced wholesale
// when present.
type Delta struct {
	Ball *BallDelta `json:"ball,omitempty"`

	Score *map[Side]int `json:"score,omitempty"`

	IsPlaying       *bool  `json:"isPlaying,omitempty"`
	ShowStartScreen *bool  `json:"showStartScreen,omitempty"`
	IsPaused        *bool  `json:"isPaused,omitempty"`
	PauseEndTime    *int64 `json:"pauseEndTime,omitempty"`
	Winner          *Side  `json:"winner,omitempty"`
	GameEnded       *bool  `json:"gameEnded,omitempty"`

	Pickups       *[]Pickup       `json:"pickups,omitempty"`
	Coins         *[]Coin         `json:"coins,omitempty"`
	ActiveEffects *[]ActiveEffect `json:"activeEffects,omitempty"`

	PickupEffect *TransientEffect `json:"pickupEffect,omitempty"`
	RumbleEffect *TransientEffect `json:"rumbleEffect,omitempty"`
}

// Apply merges the delta into the state.
func (d *Delta) Apply(s *State) {
	if d.Ball != nil {
		d.Ball.apply(&s.Ball)
	}

	if d.Score != nil {
		s.Score = *d.Score
	}

	if d.IsPlaying != nil {
		s.IsPlaying = *d.IsPlaying
	}
	if d.ShowStartScreen != nil {
		s.ShowStartScreen = *d.ShowStartScreen
	}
	if d.IsPaused != nil {
		s.IsPaused = *d.IsPaused
	}
	if d.PauseEndTime != nil {
		s.PauseEndTime = *d.PauseEndTime
	}
	if d.Winner != nil {
		s.Winner = *d.Winner
	}
	if d.GameEnded != nil {
		s.GameEnded = *d.GameEnded
	}

	if d.Pickups != nil {
		s.Pickups = *d.Pickups
	}
	if d.Coins != nil {
		s.Coins = *d.Coins
	}
	if d.ActiveEffects != nil {
		s.ActiveEffects = *d.ActiveEffects
	}

	if d.PickupEffect != nil {
		s.PickupEffect = d.PickupEffect
	}
	if d.RumbleEffect != nil {
		s.RumbleEffect = d.RumbleEffect
	}
}

func (d *BallDelta) apply(b *Ball) {
	if d.X != nil {
		b.X = *d.X
	}
	if d.Y != nil {
		b.Y = *d.Y
	}
	if d.VX != nil {
		b.VX = *d.VX
	}
	if d.VY != nil {
		b.VY = *d.VY
	}
	if d.Size != nil {
		b.Size = *d.Size
	}
	if d.OriginalSize != nil {
		b.OriginalSize = *d.OriginalSize
	}
	if d.IsDrunk != nil {
		b.IsDrunk = *d.IsDrunk
	}
	if d.DrunkAngle != nil {
		b.DrunkAngle = *d.DrunkAngle
	}
	if d.IsTeleporting != nil {
		b.IsTeleporting = *d.IsTeleporting
	}
	if d.StuckSince != nil {
		b.StuckSince = *d.StuckSince
	}
	if d.LastTouchedBy != nil {
		b.LastTouchedBy = *d.LastTouchedBy
	}
	if d.PreviousTouchedBy != nil {
		b.PreviousTouchedBy = *d.PreviousTouchedBy
	}
}
