package server

import (
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// tickRate drives the authoritative simulation.
	tickRate = 60

	sweepInterval     = 10 * time.Second
	presenceTimeout   = 30 * time.Second
	heartbeatInterval = 30 * time.Second
)

// gameLoopTask is the single fixed-rate driver behind every room. Each tick
// it steps whichever rooms are live and broadcasts a delta for every room
// that produced an observable change.
func (s *Server) gameLoopTask() {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.tickRooms(now)
		}
	}
}

func (s *Server) tickRooms(now time.Time) {
	for _, room := range s.registry.Rooms() {
		update, recipients := room.Tick(now)
		if update == nil {
			continue
		}
		s.broadcastTo(recipients, "server_game_update", update)
	}
}

// presenceSweepTask times out players silent past the threshold and reaps
// empty non-persistent rooms. Swept players leave through the same path as a
// socket close, so peers get the usual player_left and succession messages.
func (s *Server) presenceSweepTask() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			results := s.registry.SweepStale(presenceTimeout, now)
			for _, res := range results {
				log.Info().Str("player", res.PlayerID).Str("room", res.RoomID).Msg("Timed out stale player")
				s.connections.Remove(res.ConnectionID)
				s.notifyRemoval(res)
			}
		}
	}
}

// heartbeatTask pings every connection so intermediaries keep idle sockets
// open and clients can detect a dead server.
func (s *Server) heartbeatTask() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.broadcastAll("heartbeat", HeartbeatNotification{Timestamp: now.UnixMilli()})
		}
	}
}

func (s *Server) broadcastAll(msgType string, payload interface{}) {
	conns := s.connections.All()
	if len(conns) == 0 {
		return
	}

	recipients := make([]string, 0, len(conns))
	for _, conn := range conns {
		recipients = append(recipients, conn.ID)
	}
	s.broadcastTo(recipients, msgType, payload)
}
