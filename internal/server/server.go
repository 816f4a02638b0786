package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"quadpong-server/internal/game"
)

const defaultPort = 8080

// Rate limit defaults: a paddle stream at the full tick rate is 60 msg/s, so
// the ceiling sits comfortably above legitimate traffic.
const (
	rateLimitPerSecond = 120
	rateLimitBurst     = 240
)

type Server struct {
	port      int
	startedAt time.Time

	connections *ConnectionManager
	registry    *Registry
	limiter     *RateLimiter

	done     chan struct{}
	stopOnce sync.Once
}

func NewServer() (*Server, *http.Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = defaultPort
	}

	canvasSize := game.DefaultCanvasSize
	if raw := os.Getenv("CANVAS_SIZE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			canvasSize = parsed
		} else {
			log.Warn().Str("value", raw).Msg("Ignoring invalid CANVAS_SIZE")
		}
	}

	s := &Server{
		port:        port,
		startedAt:   time.Now(),
		connections: NewConnectionManager(),
		registry:    NewRegistry(canvasSize),
		limiter:     NewRateLimiter(rateLimitPerSecond, rateLimitBurst),
		done:        make(chan struct{}),
	}

	// Background tasks: the authoritative tick, presence sweeping, and the
	// keepalive heartbeat.
	go s.gameLoopTask()
	go s.presenceSweepTask()
	go s.heartbeatTask()

	log.Info().Int("port", port).Float64("canvasSize", canvasSize).Msg("Server initialized")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// Shutdown stops the background tasks and tells every client the server is
// going away. Rooms and players are in-memory only, so there is nothing to
// save. Safe to call more than once; a double signal must not panic.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	s.broadcastAll("error", ErrorMessage{
		Code:    "SERVER_SHUTDOWN",
		Message: "Server is shutting down",
	})

	// Give the writer goroutines a moment to flush the notice.
	select {
	case <-time.After(250 * time.Millisecond):
	case <-ctx.Done():
	}

	for _, conn := range s.connections.All() {
		s.connections.Remove(conn.ID)
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}
