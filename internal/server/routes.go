package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quadpong-server/internal/game"
)

// maxMessageSize caps a single inbound frame at 1 MiB.
const maxMessageSize = 1 << 20

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"service": "quadpong-server"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	rooms, players := s.registry.Counts()
	resp, err := json.Marshal(HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Rooms:         rooms,
		Players:       players,
		Connections:   s.connections.Count(),
	})
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// clientSession tracks what a single websocket has bound itself to. The
// playerId is whatever the client last claimed on a successful join; there is
// no authentication binding a connection to an id.
type clientSession struct {
	connectionID string
	playerID     string
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"}, // TODO: make environment-specific
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	socket.SetReadLimit(maxMessageSize)

	ctx := r.Context()

	session := &clientSession{connectionID: uuid.New().String()}
	conn := s.connections.Add(session.connectionID, socket)
	log.Info().Str("connection", session.connectionID).Msg("New connection")

	defer func() {
		s.limiter.RemoveConnection(session.connectionID)
		s.connections.Remove(session.connectionID)
		log.Info().Str("connection", session.connectionID).Msg("Connection closed")

		if session.playerID != "" {
			s.disconnectConnection(session.playerID, session.connectionID)
		}
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Debug().Str("connection", session.connectionID).Err(err).Msg("Read error")
			return
		}

		if msgType != websocket.MessageText {
			log.Debug().Str("connection", session.connectionID).Msg("Non-text input")
			continue
		}

		if !s.limiter.Allow(session.connectionID) {
			log.Warn().Str("connection", session.connectionID).Msg("Rate limited, dropping message")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Str("connection", session.connectionID).Err(err).Msg("Invalid JSON")
			s.sendError(conn, "Invalid JSON")
			continue
		}

		// Any well-formed message from a known player counts as presence.
		s.registry.Touch(msg.PlayerID)

		switch msg.Type {
		case TypePing:
			s.handlePing(conn)

		case TypeJoinRoom:
			s.handleJoinRoom(conn, session, msg)

		case TypeUpdatePaddle:
			s.handleUpdatePaddle(msg)

		case TypeUpdateGameState:
			s.handleUpdateGameState(conn, msg)

		case TypeUpdateGameStateDelta:
			s.handleUpdateGameStateDelta(conn, msg)

		case TypeResetRoom:
			s.handleResetRoom(msg)

		default:
			// Unknown operations are logged and ignored; no error reply.
			log.Debug().Str("connection", session.connectionID).Str("type", msg.Type).Msg("Unknown message type")
		}
	}
}

func (s *Server) handlePing(conn *Connection) {
	s.sendMessage(conn, ServerMessage{
		Type:    "pong",
		Payload: PongResponse{Timestamp: time.Now().UnixMilli()},
	})
}

func (s *Server) handleJoinRoom(conn *Connection, session *clientSession, msg ClientMessage) {
	if msg.PlayerID == "" {
		s.sendError(conn, "PLAYER_ID_INVALID: Player id cannot be empty")
		return
	}
	if err := ValidateRoomID(msg.RoomID); err != nil {
		s.sendError(conn, err.Error())
		return
	}

	var req JoinRoomRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.sendError(conn, "Invalid join_room payload")
			return
		}
	}

	// A rejoin (same connection switching rooms, or the same claimed id on a
	// fresh socket) runs the full departure path first, so the old room sees
	// a normal player_left.
	if session.playerID != "" && session.playerID != msg.PlayerID {
		s.disconnectConnection(session.playerID, session.connectionID)
		session.playerID = ""
	}
	if _, exists := s.registry.GetPlayer(msg.PlayerID); exists {
		s.disconnectPlayer(msg.PlayerID)
	}

	res, err := s.registry.Join(msg.RoomID, msg.PlayerID, session.connectionID, req.ForceSpectator)
	if err != nil {
		s.sendError(conn, err.Error())
		return
	}
	session.playerID = msg.PlayerID

	log.Info().
		Str("room", msg.RoomID).
		Str("player", msg.PlayerID).
		Str("side", string(res.Side)).
		Bool("gamemaster", res.IsGamemaster).
		Msg("Player joined")

	s.sendMessage(conn, ServerMessage{
		Type: "joined_room",
		Payload: JoinedRoomResponse{
			RoomID:       msg.RoomID,
			PlayerID:     msg.PlayerID,
			Side:         res.Side,
			IsGamemaster: res.IsGamemaster,
			PlayerCount:  res.PlayerCount,
			GameState:    res.State,
		},
	})

	s.broadcastTo(res.Recipients, "player_joined", PlayerJoinedNotification{
		PlayerID:    msg.PlayerID,
		Side:        res.Side,
		PlayerCount: res.PlayerCount,
	})
}

func (s *Server) handleUpdatePaddle(msg ClientMessage) {
	room, ok := s.roomForPlayer(msg.PlayerID)
	if !ok {
		return
	}

	var req PaddleUpdateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Debug().Str("player", msg.PlayerID).Err(err).Msg("Invalid paddle payload")
		return
	}

	// Wrong-side updates come back ok=false and are dropped without a reply.
	note, recipients, ok := room.ApplyPaddleUpdate(msg.PlayerID, req)
	if !ok {
		log.Debug().Str("player", msg.PlayerID).Str("side", string(req.Side)).Msg("Rejected paddle update")
		return
	}

	s.broadcastTo(recipients, "paddle_updated", note)
}

func (s *Server) handleUpdateGameState(conn *Connection, msg ClientMessage) {
	room, ok := s.roomForPlayer(msg.PlayerID)
	if !ok {
		return
	}

	var state game.State
	if err := json.Unmarshal(msg.Data, &state); err != nil {
		s.sendError(conn, "Invalid update_game_state payload")
		return
	}

	recipients, ok := room.ReplaceState(msg.PlayerID, &state)
	if !ok {
		log.Debug().Str("player", msg.PlayerID).Str("room", room.ID).Msg("Rejected non-gamemaster state update")
		return
	}

	// Forwarded unchanged so every client sees exactly what the gamemaster
	// sent.
	s.broadcastTo(recipients, "game_state_updated", json.RawMessage(msg.Data))
}

func (s *Server) handleUpdateGameStateDelta(conn *Connection, msg ClientMessage) {
	room, ok := s.roomForPlayer(msg.PlayerID)
	if !ok {
		return
	}

	var delta game.Delta
	if err := json.Unmarshal(msg.Data, &delta); err != nil {
		s.sendError(conn, "Invalid update_game_state_delta payload")
		return
	}

	recipients, ok := room.ApplyDelta(msg.PlayerID, &delta)
	if !ok {
		log.Debug().Str("player", msg.PlayerID).Str("room", room.ID).Msg("Rejected non-gamemaster delta")
		return
	}

	// The raw delta goes out, not the merged state, so clients apply the
	// same merge locally.
	s.broadcastTo(recipients, "update_game_state_delta", json.RawMessage(msg.Data))
}

func (s *Server) handleResetRoom(msg ClientMessage) {
	room, ok := s.roomForPlayer(msg.PlayerID)
	if !ok {
		return
	}

	state, recipients, ok := room.ResetState(msg.PlayerID)
	if !ok {
		log.Debug().Str("player", msg.PlayerID).Str("room", room.ID).Msg("Rejected non-gamemaster reset")
		return
	}

	log.Info().Str("room", room.ID).Msg("Room reset")
	s.broadcastTo(recipients, "game_reset", state)
}

func (s *Server) roomForPlayer(playerID string) (*Room, bool) {
	player, ok := s.registry.GetPlayer(playerID)
	if !ok {
		return nil, false
	}
	return s.registry.GetRoom(player.RoomID)
}

// disconnectPlayer removes a player unconditionally: the rejoin path uses it
// to evict the old registration before the new one takes the id.
func (s *Server) disconnectPlayer(playerID string) {
	res, ok := s.registry.Remove(playerID)
	if !ok {
		return
	}
	s.notifyRemoval(res)
}

// disconnectConnection is the socket-close departure path. It removes the
// player only while they are still bound to the closing connection, so a
// stale socket's teardown cannot evict a player who rejoined on a new one.
func (s *Server) disconnectConnection(playerID, connectionID string) {
	res, ok := s.registry.RemoveIfOwned(playerID, connectionID)
	if !ok {
		return
	}
	s.notifyRemoval(res)
}

func (s *Server) notifyRemoval(res RemoveResult) {
	log.Info().
		Str("room", res.RoomID).
		Str("player", res.PlayerID).
		Str("side", string(res.Side)).
		Bool("roomDeleted", res.RoomDeleted).
		Msg("Player left")

	if res.NewGamemasterConn != "" {
		if conn := s.connections.Get(res.NewGamemasterConn); conn != nil {
			s.sendMessage(conn, ServerMessage{
				Type: "gamemaster_assigned",
				Payload: GamemasterAssignedNotification{
					PlayerID: res.NewGamemasterID,
					RoomID:   res.RoomID,
				},
			})
		}
	}

	if res.RoomDeleted {
		return
	}

	s.broadcastTo(res.Recipients, "player_left", PlayerLeftNotification{
		PlayerID:        res.PlayerID,
		Side:            res.Side,
		PlayerCount:     res.PlayerCount,
		ReplacementType: res.ReplacementType,
		ReplacementID:   res.ReplacementID,
		ReplacementSide: res.ReplacementSide,
	})
}

func (s *Server) sendMessage(conn *Connection, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Str("type", msg.Type).Err(err).Msg("Marshal error")
		return
	}
	conn.Send(data)
}

func (s *Server) sendError(conn *Connection, message string) {
	s.sendMessage(conn, ServerMessage{
		Type:    "error",
		Payload: ErrorMessage{Message: message},
	})
}

// broadcastTo fans a message out to a set of connections. Marshals once;
// individual failures are dropped connections' problem, never the caller's.
func (s *Server) broadcastTo(recipients []string, msgType string, payload interface{}) {
	if len(recipients) == 0 {
		return
	}

	data, err := json.Marshal(ServerMessage{Type: msgType, Payload: payload})
	if err != nil {
		log.Error().Str("type", msgType).Err(err).Msg("Marshal error")
		return
	}

	for _, id := range recipients {
		conn := s.connections.Get(id)
		if conn == nil {
			continue
		}
		if !conn.Send(data) {
			log.Debug().Str("connection", id).Str("type", msgType).Msg("Failed to deliver broadcast")
		}
	}
}
