package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// Clients connect to the bare host, so / upgrades as well.
	r.Get("/", s.rootHandler)
	r.Get("/websocket", s.websocketHandler)
	r.Get("/health", s.healthHandler)

	return r
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		s.websocketHandler(w, r)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"message": "blackjack server"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":      "ok",
		"games":       s.gameManager.Count(),
		"connections": s.connectionManager.Count(),
		"archive":     s.archive.Health(r.Context()),
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	connectionID := uuid.NewString()
	log := s.logger.With(zap.String("connection_id", connectionID))
	log.Info("connection opened")

	client := NewClient(connectionID, socket, s.cfg.SendQueueSize, s.logger)
	s.connectionManager.AddConnection(client)
	go client.writeLoop(ctx)

	defer func() {
		// Disconnect only unregisters; the player's seat and hand stay.
		playerID := s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		socket.Close(websocket.StatusNormalClosure, "")
		log.Info("connection closed", zap.String("player_id", playerID))
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Debug("read ended", zap.Error(err))
			return
		}

		if msgType != websocket.MessageText {
			log.Debug("ignoring non-text frame")
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			log.Warn("rate limit exceeded, dropping frame")
			continue
		}

		if !s.dispatcher.Submit(ctx, connectionID, data) {
			return
		}
	}
}
