package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"blackjack-server/internal/archive"
	"blackjack-server/internal/config"
	"blackjack-server/internal/events"
	"blackjack-server/internal/server"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Local() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openArchive falls back to the no-op recorder when Postgres is not
// configured or unreachable; rounds are then only kept in memory.
func openArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) server.RoundRecorder {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, round archive disabled")
		return archive.Nop{}
	}

	store, err := archive.Open(ctx, cfg.DatabaseURL, logger.Named("archive"))
	if err != nil {
		logger.Warn("round archive unavailable, continuing without it", zap.Error(err))
		return archive.Nop{}
	}
	return store
}

func openEvents(ctx context.Context, cfg config.Config, logger *zap.Logger) events.Publisher {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, event feed disabled")
		return events.Nop{}
	}

	pub, err := events.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.EventsChannel, logger.Named("events"))
	if err != nil {
		logger.Warn("event feed unavailable, continuing without it", zap.Error(err))
		return events.Nop{}
	}
	return pub
}

func gracefulShutdown(srv *server.Server, httpServer *http.Server, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("shutdown signal received, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Sockets first: hijacked connections are invisible to http.Server.Shutdown.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}

	done <- true
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	srv := server.NewServer(cfg, logger, openArchive(ctx, cfg, logger), openEvents(ctx, cfg, logger))
	httpServer := srv.HTTPServer()

	done := make(chan bool, 1)
	go gracefulShutdown(srv, httpServer, logger, done)

	logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Env))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	logger.Info("graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
