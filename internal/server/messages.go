package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Inbound message types.
const (
	TypeJoin      = "join"
	TypeCreate    = "createGame"
	TypeJoinGame  = "joinGame"
	TypeStartGame = "startGame"
	TypeHit       = "hit"
	TypeStand     = "stand"
	TypeChat      = "chat"
	TypePlaceBet  = "placeBet"
	TypeSetReady  = "setReady"
	TypePing      = "ping"
)

const (
	maxNameLength = 32
	maxChatLength = 500
)

var (
	ErrUnknownCommand = errors.New("UNKNOWN_COMMAND: Unrecognized message type")
	ErrInvalidPayload = errors.New("INVALID_PAYLOAD: Message is missing or has invalid fields")
)

// Command is one decoded client message. The set of implementations is
// closed; DecodeCommand is the only constructor used on the wire path.
type Command interface {
	Type() string
}

type JoinCommand struct{}

type CreateGameCommand struct {
	PlayerName string `json:"playerName"`
}

type JoinGameCommand struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

type StartGameCommand struct {
	GameID string `json:"gameId"`
}

type HitCommand struct {
	GameID string `json:"gameId"`
}

type StandCommand struct {
	GameID string `json:"gameId"`
}

type ChatCommand struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

type PlaceBetCommand struct {
	GameID string `json:"gameId"`
	Amount int    `json:"amount"`
}

type SetReadyCommand struct {
	GameID string `json:"gameId"`
	Ready  bool   `json:"ready"`
}

type PingCommand struct{}

func (JoinCommand) Type() string       { return TypeJoin }
func (CreateGameCommand) Type() string { return TypeCreate }
func (JoinGameCommand) Type() string   { return TypeJoinGame }
func (StartGameCommand) Type() string  { return TypeStartGame }
func (HitCommand) Type() string        { return TypeHit }
func (StandCommand) Type() string      { return TypeStand }
func (ChatCommand) Type() string       { return TypeChat }
func (PlaceBetCommand) Type() string   { return TypePlaceBet }
func (SetReadyCommand) Type() string   { return TypeSetReady }
func (PingCommand) Type() string       { return TypePing }

func (c CreateGameCommand) validate() error {
	return validatePlayerName(c.PlayerName)
}

func (c JoinGameCommand) validate() error {
	if c.GameID == "" {
		return fmt.Errorf("%w: gameId is required", ErrInvalidPayload)
	}
	return validatePlayerName(c.PlayerName)
}

func (c StartGameCommand) validate() error { return requireGameID(c.GameID) }
func (c HitCommand) validate() error       { return requireGameID(c.GameID) }
func (c StandCommand) validate() error     { return requireGameID(c.GameID) }
func (c PlaceBetCommand) validate() error  { return requireGameID(c.GameID) }
func (c SetReadyCommand) validate() error  { return requireGameID(c.GameID) }

func (c ChatCommand) validate() error {
	if err := requireGameID(c.GameID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(c.Message) > maxChatLength {
		return fmt.Errorf("%w: message too long (max %d characters)", ErrInvalidPayload, maxChatLength)
	}
	return nil
}

// DecodeCommand parses a flat {"type": ..., fields} frame.
func DecodeCommand(data []byte) (Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch envelope.Type {
	case TypeJoin:
		return JoinCommand{}, nil
	case TypePing:
		return PingCommand{}, nil
	case TypeCreate:
		return decode[CreateGameCommand](data)
	case TypeJoinGame:
		return decode[JoinGameCommand](data)
	case TypeStartGame:
		return decode[StartGameCommand](data)
	case TypeHit:
		return decode[HitCommand](data)
	case TypeStand:
		return decode[StandCommand](data)
	case TypeChat:
		return decode[ChatCommand](data)
	case TypePlaceBet:
		return decode[PlaceBetCommand](data)
	case TypeSetReady:
		return decode[SetReadyCommand](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, envelope.Type)
	}
}

type validatingCommand interface {
	Command
	validate() error
}

func decode[T validatingCommand](data []byte) (Command, error) {
	var cmd T
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func requireGameID(gameID string) error {
	if gameID == "" {
		return fmt.Errorf("%w: gameId is required", ErrInvalidPayload)
	}
	return nil
}

func validatePlayerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: playerName cannot be empty", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: playerName too long (max %d characters)", ErrInvalidPayload, maxNameLength)
	}
	return nil
}
