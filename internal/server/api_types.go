package server

import (
	"strings"

	"blackjack-server/internal/blackjack"
)

// Outbound message types.
const (
	TypeJoined       = "joined"
	TypeGameCreated  = "gameCreated"
	TypePlayerJoined = "playerJoined"
	TypeGameStarted  = "gameStarted"
	TypeGameUpdate   = "gameUpdate"
	TypeChatMessage  = "chatMessage"
	TypeError        = "error"
	TypePong         = "pong"

	// Event feed only; never sent to clients.
	TypeRoundFinished = "roundFinished"
)

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// newErrorMessage splits a "CODE: Message" sentinel into its parts.
func newErrorMessage(err error) ErrorMessage {
	text := err.Error()
	code, message, found := strings.Cut(text, ": ")
	if !found || strings.ToUpper(code) != code || strings.Contains(code, " ") {
		return ErrorMessage{Type: TypeError, Message: text}
	}
	return ErrorMessage{Type: TypeError, Message: message, Code: code}
}

// ============================================================================
// JOIN (join)
// ============================================================================
type JoinedMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

// ============================================================================
// CREATE GAME (createGame)
// ============================================================================
type GameCreatedMessage struct {
	Type      string             `json:"type"`
	GameID    string             `json:"gameId"`
	GameState blackjack.GameView `json:"gameState"`
}

// ============================================================================
// TABLE STATE (playerJoined, gameStarted, gameUpdate broadcasts)
// ============================================================================
type GameStateMessage struct {
	Type      string             `json:"type"`
	GameState blackjack.GameView `json:"gameState"`
}

// ============================================================================
// CHAT (chatMessage broadcast)
// ============================================================================
type ChatBroadcast struct {
	Type    string                `json:"type"`
	Message blackjack.ChatMessage `json:"message"`
}

type PongMessage struct {
	Type string `json:"type"`
}
