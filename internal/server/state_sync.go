package server

import (
	"time"

	"quadpong-server/internal/game"
)

// The four state-mutating operations of the sync protocol. Authorization
// failures return ok=false and mutate nothing; the dispatcher drops those
// silently, without an error reply.

// ApplyPaddleUpdate writes position/velocity/target into the sender's own
// paddle. Accepted only when the sender actually occupies the side named in
// the payload.
func (room *Room) ApplyPaddleUpdate(playerID string, req PaddleUpdateRequest) (PaddleUpdatedNotification, []string, bool) {
	room.mu.Lock()
	defer room.mu.Unlock()

	player := room.Players[playerID]
	if player == nil || !req.Side.Directional() || player.Side != req.Side {
		return PaddleUpdatedNotification{}, nil, false
	}

	paddle := room.State.Paddles[req.Side]
	if paddle == nil {
		return PaddleUpdatedNotification{}, nil, false
	}

	if req.Position != nil {
		paddle.Position = *req.Position
	}
	if req.Velocity != nil {
		paddle.Velocity = *req.Velocity
	}
	if req.Target != nil {
		paddle.Target = *req.Target
	}
	room.LastUpdate = time.Now()

	note := PaddleUpdatedNotification{
		Side:     req.Side,
		Position: paddle.Position,
		Velocity: paddle.Velocity,
		Target:   paddle.Target,
	}
	return note, room.recipientsLocked(playerID), true
}

// ReplaceState swaps in a full game state from the gamemaster.
func (room *Room) ReplaceState(playerID string, state *game.State) ([]string, bool) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.GamemasterID == "" || room.GamemasterID != playerID {
		return nil, false
	}

	state.Normalize(room.CanvasSize)
	room.State = state
	room.LastUpdate = time.Now()

	return room.recipientsLocked(playerID), true
}

// ApplyDelta merges a partial patch from the gamemaster. The caller
// rebroadcasts the raw payload, not the merged state, so every client applies
// the same merge.
func (room *Room) ApplyDelta(playerID string, delta *game.Delta) ([]string, bool) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.GamemasterID == "" || room.GamemasterID != playerID {
		return nil, false
	}

	delta.Apply(room.State)
	room.LastUpdate = time.Now()

	return room.recipientsLocked(playerID), true
}

// ResetState replaces the game state with a fresh initial one. Gamemaster
// only; the returned clone goes to the whole room, sender included.
func (room *Room) ResetState(playerID string) (*game.State, []string, bool) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.GamemasterID == "" || room.GamemasterID != playerID {
		return nil, nil, false
	}

	room.State = game.NewState(room.CanvasSize)
	room.LastUpdate = time.Now()

	return room.State.Clone(), room.recipientsLocked(""), true
}

// Tick advances the room one authoritative step. Returns nil when nothing
// observable changed (idle room, paused, start screen, match over).
func (room *Room) Tick(now time.Time) (*ServerGameUpdate, []string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.IsActive || len(room.Players) == 0 {
		return nil, nil
	}

	st := room.State
	nowMs := now.UnixMilli()

	changed := st.ExpirePause(nowMs)

	if st.IsPlaying && !st.IsPaused && !st.GameEnded {
		// Win check first so a score written by a gamemaster delta ends
		// the match before the ball moves again.
		if game.CheckWin(st) {
			changed = true
		} else {
			if game.Step(st, nowMs) {
				changed = true
			}
			if !st.GameEnded && game.UpdatePickups(st, nowMs) {
				changed = true
			}
		}
	}

	if !changed {
		return nil, nil
	}
	room.LastUpdate = now

	c := st.Clone()
	update := &ServerGameUpdate{
		Ball:          c.Ball,
		Score:         c.Score,
		Pickups:       c.Pickups,
		Coins:         c.Coins,
		ActiveEffects: c.ActiveEffects,
		PickupEffect:  c.PickupEffect,
		RumbleEffect:  c.RumbleEffect,
		Winner:        c.Winner,
		GameEnded:     c.GameEnded,
	}
	return update, room.recipientsLocked("")
}
