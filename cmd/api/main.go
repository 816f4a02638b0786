package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"quadpong-server/internal/server"
)

func gracefulShutdown(customServer *server.Server, httpServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("Shutdown signal received, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Sessions are ephemeral; five seconds is plenty to notify clients and
	// drain the sockets.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Custom shutdown logic (notify players, close connections).
	if err := customServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during custom shutdown")
	}

	// Shutdown HTTP server
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown with error")
	}

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	customServer, httpServer := server.NewServer()

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(customServer, httpServer, done)

	err := httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
