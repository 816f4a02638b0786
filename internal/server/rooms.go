package server

import (
	"errors"
	"sync"
	"time"

	"quadpong-server/internal/game"
)

// MainRoomID names the room created at startup. It survives being empty;
// every other room is deleted once its last player leaves.
const MainRoomID = "main"

type Player struct {
	ID           string
	Side         game.Side
	ConnectionID string
	RoomID       string
	LastSeen     time.Time
	JoinedAt     time.Time
}

// Room is one game session. Its state and member map are only touched under
// its own mutex, so tick-time work for unrelated rooms never serializes.
type Room struct {
	ID         string
	Persistent bool
	CanvasSize float64

	mu           sync.Mutex
	State        *game.State
	Players      map[string]*Player
	GamemasterID string
	LastUpdate   time.Time
	IsActive     bool
}

func NewRoom(id string, canvasSize float64) *Room {
	return &Room{
		ID:         id,
		Persistent: id == MainRoomID,
		CanvasSize: canvasSize,
		State:      game.NewState(canvasSize),
		Players:    make(map[string]*Player),
		LastUpdate: time.Now(),
		IsActive:   true,
	}
}

// Registry owns the room and player maps. Its lock covers only the maps;
// room internals are guarded per room.
type Registry struct {
	rooms      map[string]*Room
	players    map[string]*Player
	canvasSize float64
	mu         sync.RWMutex
}

func NewRegistry(canvasSize float64) *Registry {
	if canvasSize <= 0 {
		canvasSize = game.DefaultCanvasSize
	}
	r := &Registry{
		rooms:      make(map[string]*Room),
		players:    make(map[string]*Player),
		canvasSize: canvasSize,
	}
	r.rooms[MainRoomID] = NewRoom(MainRoomID, canvasSize)
	return r
}

type JoinResult struct {
	Room         *Room
	Player       *Player
	Side         game.Side
	IsGamemaster bool
	PlayerCount  int
	// State is a clone, safe to marshal without the room lock.
	State *game.State
	// Recipients are the connection ids of the other room members.
	Recipients []string
}

// Join places a player into a room, creating the room on first use. Seats are
// handed out in the fixed right→left→top→bottom order; when all four walls
// are taken (or forceSpectator is set) the player spectates. A room without a
// gamemaster grants it to the first player seated right.
func (r *Registry) Join(roomID, playerID, connectionID string, forceSpectator bool) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[playerID]; exists {
		return JoinResult{}, errors.New("PLAYER_EXISTS: Player id already in use")
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = NewRoom(roomID, r.canvasSize)
		r.rooms[roomID] = room
	}

	now := time.Now()
	player := &Player{
		ID:           playerID,
		ConnectionID: connectionID,
		RoomID:       roomID,
		LastSeen:     now,
		JoinedAt:     now,
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player.Side = game.SideSpectator
	if !forceSpectator {
		if side, ok := room.freeSeatLocked(); ok {
			player.Side = side
		}
	}

	// Quirk kept on purpose: only a right-seat assignment grants the
	// gamemaster role to a room that has none.
	if room.GamemasterID == "" && player.Side == game.SideRight {
		room.GamemasterID = playerID
	}

	room.Players[playerID] = player
	room.LastUpdate = now
	r.players[playerID] = player

	return JoinResult{
		Room:         room,
		Player:       player,
		Side:         player.Side,
		IsGamemaster: room.GamemasterID == playerID,
		PlayerCount:  len(room.Players),
		State:        room.State.Clone(),
		Recipients:   room.recipientsLocked(playerID),
	}, nil
}

// freeSeatLocked returns the first unoccupied directional seat.
func (room *Room) freeSeatLocked() (game.Side, bool) {
	for _, side := range game.SeatOrder {
		taken := false
		for _, p := range room.Players {
			if p.Side == side {
				taken = true
				break
			}
		}
		if !taken {
			return side, true
		}
	}
	return "", false
}

type RemoveResult struct {
	RoomID       string
	PlayerID     string
	ConnectionID string
	Side         game.Side
	PlayerCount  int

	// Gamemaster succession, when the departing player held the role.
	NewGamemasterID   string
	NewGamemasterConn string

	// Spectator promotion into the vacated seat.
	ReplacementType string // "spectator" or "none"
	ReplacementID   string
	ReplacementSide game.Side

	RoomDeleted bool
	// Recipients are the connection ids of the remaining room members.
	Recipients []string
}

// Remove takes a player out of their room and the registry, handling
// gamemaster succession and spectator promotion. The second return is false
// when the player is unknown.
func (r *Registry) Remove(playerID string) (RemoveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(playerID)
}

// RemoveIfOwned removes the player only while they are still bound to the
// given connection. A player who rejoined on a fresh socket keeps their new
// registration when the stale socket finally closes.
func (r *Registry) RemoveIfOwned(playerID, connectionID string) (RemoveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok || player.ConnectionID != connectionID {
		return RemoveResult{}, false
	}
	return r.removeLocked(playerID)
}

func (r *Registry) removeLocked(playerID string) (RemoveResult, bool) {
	player, ok := r.players[playerID]
	if !ok {
		return RemoveResult{}, false
	}
	delete(r.players, playerID)

	room, ok := r.rooms[player.RoomID]
	if !ok {
		return RemoveResult{}, false
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	delete(room.Players, playerID)
	room.LastUpdate = time.Now()

	res := RemoveResult{
		RoomID:          room.ID,
		PlayerID:        playerID,
		ConnectionID:    player.ConnectionID,
		Side:            player.Side,
		PlayerCount:     len(room.Players),
		ReplacementType: "none",
	}

	if room.GamemasterID == playerID {
		room.GamemasterID = ""
		// Arbitrary remaining player inherits the role.
		for id, p := range room.Players {
			room.GamemasterID = id
			res.NewGamemasterID = id
			res.NewGamemasterConn = p.ConnectionID
			break
		}
	}

	if player.Side.Directional() {
		if promoted := room.earliestSpectatorLocked(); promoted != nil {
			promoted.Side = player.Side
			res.ReplacementType = "spectator"
			res.ReplacementID = promoted.ID
			res.ReplacementSide = promoted.Side
		}
	}

	if len(room.Players) == 0 && !room.Persistent {
		delete(r.rooms, room.ID)
		res.RoomDeleted = true
	}

	res.Recipients = room.recipientsLocked("")
	return res, true
}

func (room *Room) earliestSpectatorLocked() *Player {
	var earliest *Player
	for _, p := range room.Players {
		if p.Side != game.SideSpectator {
			continue
		}
		if earliest == nil || p.JoinedAt.Before(earliest.JoinedAt) {
			earliest = p
		}
	}
	return earliest
}

// recipientsLocked lists member connection ids, minus an excluded player.
func (room *Room) recipientsLocked(excludePlayerID string) []string {
	ids := make([]string, 0, len(room.Players))
	for id, p := range room.Players {
		if id == excludePlayerID {
			continue
		}
		ids = append(ids, p.ConnectionID)
	}
	return ids
}

func (r *Registry) GetRoom(id string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

func (r *Registry) GetPlayer(id string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// Touch refreshes a player's last-seen time. Called for every message that
// names a known player, keeping the presence sweeper at bay.
func (r *Registry) Touch(playerID string) {
	r.mu.RLock()
	player, ok := r.players[playerID]
	var room *Room
	if ok {
		room = r.rooms[player.RoomID]
	}
	r.mu.RUnlock()

	if !ok || room == nil {
		return
	}

	room.mu.Lock()
	player.LastSeen = time.Now()
	room.mu.Unlock()
}

// Rooms returns a snapshot of the current rooms for the tick loop.
func (r *Registry) Rooms() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *Registry) Counts() (rooms, players int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.players)
}

// SweepStale removes every player silent longer than timeout and deletes
// rooms that ended up empty through any path. Returns one result per removed
// player so the caller can send the usual departure notifications.
func (r *Registry) SweepStale(timeout time.Duration, now time.Time) []RemoveResult {
	var stale []string
	for _, room := range r.Rooms() {
		room.mu.Lock()
		for id, p := range room.Players {
			if now.Sub(p.LastSeen) > timeout {
				stale = append(stale, id)
			}
		}
		room.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]RemoveResult, 0, len(stale))
	for _, id := range stale {
		if res, ok := r.removeLocked(id); ok {
			results = append(results, res)
		}
	}

	// Rooms emptied outside the removal path (e.g. a join that never
	// completed) still get reaped here.
	for id, room := range r.rooms {
		if room.Persistent {
			continue
		}
		room.mu.Lock()
		empty := len(room.Players) == 0
		room.mu.Unlock()
		if empty {
			delete(r.rooms, id)
		}
	}

	return results
}
