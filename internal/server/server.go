package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"blackjack-server/internal/blackjack"
	"blackjack-server/internal/config"
	"blackjack-server/internal/events"
)

// RoundRecorder stores settled rounds. archive.Store and archive.Nop
// implement it.
type RoundRecorder interface {
	Record(blackjack.RoundResult)
	Health(ctx context.Context) map[string]string
	Close(ctx context.Context) error
}

type Server struct {
	cfg               config.Config
	logger            *zap.Logger
	connectionManager *ConnectionManager
	gameManager       *GameManager
	rateLimiter       *RateLimiter
	dispatcher        *Dispatcher
	archive           RoundRecorder
	events            events.Publisher

	stopJanitor chan struct{}
	shutdown    sync.Once
}

func NewServer(cfg config.Config, logger *zap.Logger, recorder RoundRecorder, publisher events.Publisher) *Server {
	s := &Server{
		cfg:               cfg,
		logger:            logger,
		connectionManager: NewConnectionManager(),
		gameManager:       NewGameManager(),
		rateLimiter:       NewRateLimiter(cfg.RateLimit, time.Second),
		archive:           recorder,
		events:            publisher,
		stopJanitor:       make(chan struct{}),
	}
	s.dispatcher = NewDispatcher(s.handleFrame, logger.Named("dispatcher"))

	go s.janitor()

	return s
}

// HTTPServer wraps the routes in an http.Server listening on the configured
// port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.rateLimiter.Cleanup()
		case <-s.stopJanitor:
			return
		}
	}
}

// Shutdown closes every websocket, finishes the frames already queued and
// flushes the backends. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	s.shutdown.Do(func() {
		close(s.stopJanitor)

		clients := s.connectionManager.Clients()
		s.logger.Info("closing connections", zap.Int("connections", len(clients)))

		var wg sync.WaitGroup
		for _, c := range clients {
			if c.conn == nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			}()
		}
		wg.Wait()

		if err := s.dispatcher.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := s.archive.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := s.events.Close(); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}
