package server

import (
	"encoding/json"

	"go.uber.org/zap"

	"blackjack-server/internal/blackjack"
	"blackjack-server/internal/events"
)

// broadcastToGame serializes msg once and queues it for every seated player
// with a live connection. Players without one are skipped. The message is
// mirrored to the event feed.
func (s *Server) broadcastToGame(game *blackjack.Game, msgType string, msg any) {
	frame, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal broadcast", zap.String("type", msgType), zap.Error(err))
		return
	}

	for _, p := range game.Players() {
		client, ok := s.connectionManager.ClientForPlayer(p.ID)
		if !ok {
			continue
		}
		if !client.enqueue(frame) {
			s.logger.Warn("dropping broadcast for slow or closed connection",
				zap.String("type", msgType),
				zap.String("game_id", game.ID),
				zap.String("player_id", p.ID),
				zap.String("connection_id", client.ID()),
			)
		}
	}

	s.events.Publish(events.New(msgType, game.ID, msg))
}

func (s *Server) broadcastState(game *blackjack.Game, msgType string) {
	s.broadcastToGame(game, msgType, GameStateMessage{
		Type:      msgType,
		GameState: game.View(),
	})
}

// sendTo queues msg for a single connection.
func (s *Server) sendTo(connectionID string, msg any) {
	client := s.connectionManager.GetClient(connectionID)
	if client == nil {
		return
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal message", zap.String("connection_id", connectionID), zap.Error(err))
		return
	}

	if !client.enqueue(frame) {
		s.logger.Warn("dropping message for slow or closed connection", zap.String("connection_id", connectionID))
	}
}

func (s *Server) sendError(connectionID string, err error) {
	s.sendTo(connectionID, newErrorMessage(err))
}
