package server

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blackjack-server/internal/blackjack"
	"blackjack-server/internal/events"
)

// handleFrame runs on the dispatcher goroutine.
func (s *Server) handleFrame(connectionID string, data []byte) {
	cmd, err := DecodeCommand(data)
	if err != nil {
		s.logger.Warn("dropping inbound frame", zap.String("connection_id", connectionID), zap.Error(err))
		return
	}

	switch c := cmd.(type) {
	case PingCommand:
		s.sendTo(connectionID, PongMessage{Type: TypePong})
	case JoinCommand:
		s.handleJoin(connectionID)
	default:
		playerID, ok := s.connectionManager.PlayerForConnection(connectionID)
		if !ok {
			s.logger.Debug("command before join",
				zap.String("connection_id", connectionID), zap.String("type", c.Type()))
			return
		}
		s.handleGameCommand(connectionID, playerID, c)
	}
}

func (s *Server) handleGameCommand(connectionID, playerID string, cmd Command) {
	log := s.logger.With(
		zap.String("connection_id", connectionID),
		zap.String("player_id", playerID),
		zap.String("type", cmd.Type()),
	)

	switch c := cmd.(type) {
	case CreateGameCommand:
		s.handleCreateGame(log, connectionID, playerID, c)
	case JoinGameCommand:
		s.handleJoinGame(log, connectionID, playerID, c)
	case StartGameCommand:
		s.handleStartGame(log, c)
	case HitCommand:
		game, result, err := s.gameManager.Hit(c.GameID, playerID)
		s.afterTurn(log, game, result, err)
	case StandCommand:
		game, result, err := s.gameManager.Stand(c.GameID, playerID)
		s.afterTurn(log, game, result, err)
	case ChatCommand:
		s.handleChat(log, playerID, c)
	case PlaceBetCommand:
		game, err := s.gameManager.PlaceBet(c.GameID, playerID, c.Amount)
		s.afterLobbyChange(log, game, err)
	case SetReadyCommand:
		game, err := s.gameManager.SetReady(c.GameID, playerID, c.Ready)
		s.afterLobbyChange(log, game, err)
	default:
		log.Warn("unhandled command")
	}
}

func (s *Server) handleJoin(connectionID string) {
	playerID := uuid.NewString()

	// A second join on the same socket is ignored so the first player keeps
	// receiving its table's broadcasts.
	if err := s.connectionManager.BindPlayer(connectionID, playerID); err != nil {
		s.logger.Warn("join rejected", zap.String("connection_id", connectionID), zap.Error(err))
		return
	}

	s.logger.Info("player joined",
		zap.String("connection_id", connectionID), zap.String("player_id", playerID))
	s.sendTo(connectionID, JoinedMessage{Type: TypeJoined, PlayerID: playerID})
}

func (s *Server) handleCreateGame(log *zap.Logger, connectionID, playerID string, c CreateGameCommand) {
	game, err := s.gameManager.CreateGame(playerID, strings.TrimSpace(c.PlayerName))
	if err != nil {
		log.Warn("create game rejected", zap.Error(err))
		return
	}

	log.Info("game created", zap.String("game_id", game.ID))
	s.sendTo(connectionID, GameCreatedMessage{
		Type:      TypeGameCreated,
		GameID:    game.ID,
		GameState: game.View(),
	})
}

func (s *Server) handleJoinGame(log *zap.Logger, connectionID, playerID string, c JoinGameCommand) {
	game, err := s.gameManager.JoinGame(c.GameID, playerID, strings.TrimSpace(c.PlayerName))
	if err != nil {
		log.Info("join game rejected", zap.String("game_id", c.GameID), zap.Error(err))
		s.sendError(connectionID, err)
		return
	}

	log.Info("player seated", zap.String("game_id", game.ID), zap.Int("players", len(game.Players())))
	s.broadcastState(game, TypePlayerJoined)
}

func (s *Server) handleStartGame(log *zap.Logger, c StartGameCommand) {
	game, err := s.gameManager.StartGame(c.GameID)
	if err != nil {
		log.Debug("start ignored", zap.String("game_id", c.GameID), zap.Error(err))
		return
	}

	log.Info("game started", zap.String("game_id", game.ID))
	s.broadcastState(game, TypeGameStarted)
}

// afterTurn broadcasts a hit or stand and archives the round if it ended.
// err is only set for an unknown game or a sender outside the roster; those
// stay silent. A seated player who has no active hand still gets gameUpdate.
func (s *Server) afterTurn(log *zap.Logger, game *blackjack.Game, result *blackjack.RoundResult, err error) {
	if err != nil {
		log.Debug("turn ignored", zap.Error(err))
		return
	}

	s.broadcastState(game, TypeGameUpdate)

	if result != nil {
		log.Info("round finished",
			zap.String("game_id", game.ID), zap.Int("dealer_value", result.DealerValue))
		s.archive.Record(*result)
		s.events.Publish(events.New(TypeRoundFinished, game.ID, result))
	}
}

func (s *Server) afterLobbyChange(log *zap.Logger, game *blackjack.Game, err error) {
	if err != nil {
		log.Debug("lobby change ignored", zap.Error(err))
		return
	}
	s.broadcastState(game, TypeGameUpdate)
}

func (s *Server) handleChat(log *zap.Logger, playerID string, c ChatCommand) {
	game, msg, err := s.gameManager.Chat(c.GameID, playerID, c.PlayerName, c.Message)
	if err != nil {
		log.Debug("chat ignored", zap.String("game_id", c.GameID), zap.Error(err))
		return
	}

	s.broadcastToGame(game, TypeChatMessage, ChatBroadcast{Type: TypeChatMessage, Message: msg})
}
