package server

import "quadpong-server/internal/game"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// JOIN ROOM (join_room / jr)
// ============================================================================
type JoinRoomRequest struct {
	ForceSpectator bool `json:"forceSpectator"`
}

type JoinedRoomResponse struct {
	RoomID       string      `json:"roomId"`
	PlayerID     string      `json:"playerId"`
	Side         game.Side   `json:"side"`
	IsGamemaster bool        `json:"isGamemaster"`
	PlayerCount  int         `json:"playerCount"`
	GameState    *game.State `json:"gameState"`
}

type PlayerJoinedNotification struct {
	PlayerID    string    `json:"playerId"`
	Side        game.Side `json:"side"`
	PlayerCount int       `json:"playerCount"`
}

// ============================================================================
// PLAYER LEFT (player_left broadcast)
// ============================================================================
// The replacement fields double as the spectator-promotion notification: when
// a directional seat is vacated and a spectator takes it, ReplacementType is
// "spectator" and the replacement identity names who now holds the seat.
type PlayerLeftNotification struct {
	PlayerID        string    `json:"playerId"`
	Side            game.Side `json:"side"`
	PlayerCount     int       `json:"playerCount"`
	ReplacementType string    `json:"replacementType"` // "spectator" or "none"
	ReplacementID   string    `json:"replacementId,omitempty"`
	ReplacementSide game.Side `json:"replacementSide,omitempty"`
}

// ============================================================================
// PADDLE UPDATE (update_paddle / up)
// ============================================================================
type PaddleUpdateRequest struct {
	Side     game.Side `json:"side"`
	Position *float64  `json:"position,omitempty"`
	Velocity *float64  `json:"velocity,omitempty"`
	Target   *float64  `json:"target,omitempty"`
}

type PaddleUpdatedNotification struct {
	Side     game.Side `json:"side"`
	Position float64   `json:"position"`
	Velocity float64   `json:"velocity"`
	Target   float64   `json:"target"`
}

// ============================================================================
// GAMEMASTER SUCCESSION (gamemaster_assigned, sent directly)
// ============================================================================
type GamemasterAssignedNotification struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
}

// ============================================================================
// SERVER TICK (server_game_update broadcast)
// ============================================================================
// Only the fields the authoritative tick can change. Paddles are deliberately
// absent: paddle motion is client-driven and travels as paddle_updated.
type ServerGameUpdate struct {
	Ball          game.Ball             `json:"ball"`
	Score         map[game.Side]int     `json:"score"`
	Pickups       []game.Pickup         `json:"pickups"`
	Coins         []game.Coin           `json:"coins"`
	ActiveEffects []game.ActiveEffect   `json:"activeEffects"`
	PickupEffect  *game.TransientEffect `json:"pickupEffect,omitempty"`
	RumbleEffect  *game.TransientEffect `json:"rumbleEffect,omitempty"`
	Winner        game.Side             `json:"winner,omitempty"`
	GameEnded     bool                  `json:"gameEnded"`
}

// ============================================================================
// KEEPALIVE (heartbeat broadcast, pong reply)
// ============================================================================
type HeartbeatNotification struct {
	Timestamp int64 `json:"timestamp"`
}

type PongResponse struct {
	Timestamp int64 `json:"timestamp"`
}

// ============================================================================
// HEALTH (/health)
// ============================================================================
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Rooms         int    `json:"rooms"`
	Players       int    `json:"players"`
	Connections   int    `json:"connections"`
}
