package game

import (
	"encoding/json"
	"testing"
)

func f64(v float64) *float64 { return &v }
func boolp(v bool) *bool     { return &v }

func TestDeltaBallShallowMerge(t *testing.T) {
	s := playingState()
	s.Ball.X = 100
	s.Ball.Y = 200
	s.Ball.VX = 3
	s.Ball.VY = -3

	d := Delta{Ball: &BallDelta{X: f64(450), VX: f64(-5)}}
	d.Apply(s)

	if s.Ball.X != 450 || s.Ball.VX != -5 {
		t.Errorf("Present ball fields should be written, got x=%v vx=%v", s.Ball.X, s.Ball.VX)
	}
	if s.Ball.Y != 200 || s.Ball.VY != -3 {
		t.Errorf("Absent ball fields must survive the merge, got y=%v vy=%v", s.Ball.Y, s.Ball.VY)
	}
}

func TestDeltaScoreReplacedWholesale(t *testing.T) {
	s := playingState()
	s.Score[SideLeft] = 2
	s.Score[SideTop] = 1

	patch := map[Side]int{SideRight: 3}
	d := Delta{Score: &patch}
	d.Apply(s)

	if s.Score[SideRight] != 3 {
		t.Errorf("Score patch should apply, got %v", s.Score)
	}
	if s.Score[SideLeft] != 0 || s.Score[SideTop] != 0 {
		t.Errorf("Score is replaced wholesale, not merged: %v", s.Score)
	}
}

func TestDeltaSlicesReplaceNotAppend(t *testing.T) {
	s := playingState()
	s.Pickups = []Pickup{{ID: "old", Type: PickupSpeed}}

	patch := []Pickup{{ID: "new", Type: PickupDrunk}}
	d := Delta{Pickups: &patch}
	d.Apply(s)

	if len(s.Pickups) != 1 || s.Pickups[0].ID != "new" {
		t.Errorf("Pickups should be replaced, got %+v", s.Pickups)
	}
}

func TestDeltaFlowFlags(t *testing.T) {
	s := playingState()

	d := Delta{IsPlaying: boolp(false), IsPaused: boolp(true)}
	d.Apply(s)

	if s.IsPlaying || !s.IsPaused {
		t.Errorf("Flow flags should apply: isPlaying=%v isPaused=%v", s.IsPlaying, s.IsPaused)
	}
}

func TestDeltaAbsentSectionsUntouched(t *testing.T) {
	s := playingState()
	s.Score[SideLeft] = 2
	s.ActiveEffects = []ActiveEffect{{Type: PickupDrunk}}

	var d Delta
	d.Apply(s)

	if s.Score[SideLeft] != 2 || len(s.ActiveEffects) != 1 {
		t.Error("An empty delta must be a no-op")
	}
}

func TestDeltaDecodesFromWirePayload(t *testing.T) {
	raw := []byte(`{"ball":{"x":10,"vy":-2},"score":{"right":3},"gameEnded":false}`)

	var d Delta
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if d.Ball == nil || d.Ball.X == nil || *d.Ball.X != 10 {
		t.Error("ball.x should decode as present")
	}
	if d.Ball.Y != nil {
		t.Error("ball.y was absent and must stay nil")
	}
	if d.Score == nil || (*d.Score)[SideRight] != 3 {
		t.Error("score should decode")
	}
	if d.GameEnded == nil || *d.GameEnded {
		t.Error("explicit false must be distinguishable from absent")
	}
}
