package blackjack

import (
	"errors"
	"time"
)

// MaxPlayers is the table size.
const MaxPlayers = 4

// StartingChips is the balance every player sits down with.
const StartingChips = 1000

// State is the table lifecycle: waiting, then playing, then finished. It
// never moves backwards.
type State string

const (
	StateWaiting  State = "waiting"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// Status is a player's position in the current round.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusBust      Status = "bust"
	StatusStand     Status = "stand"
	StatusBlackjack Status = "blackjack"
)

var (
	ErrGameFull       = errors.New("ROOM_FULL: Table is full (4/4 players)")
	ErrAlreadyJoined  = errors.New("ALREADY_JOINED: Player is already seated at this table")
	ErrPlayerNotFound = errors.New("PLAYER_NOT_FOUND: Player is not seated at this table")
	ErrNotPlaying     = errors.New("NOT_PLAYING: Player has no active hand")
	ErrInvalidState   = errors.New("INVALID_STATE: Operation not allowed in the current game state")
	ErrRoundNotOver   = errors.New("ROUND_NOT_OVER: Players are still acting")
	ErrInvalidBet     = errors.New("INVALID_BET: Bet must be positive and within the player's chips")
)

// Player is one seat at a table. A player belongs to exactly one game.
type Player struct {
	ID      string `json:"id"`      // Assigned on join, not chosen by the client
	Name    string `json:"name"`    // Display name given at createGame/joinGame
	Hand    []Card `json:"hand"`    // Cards in deal order
	Bet     int    `json:"bet"`     // Current wager; never debited from Chips
	Chips   int    `json:"chips"`   // Starts at StartingChips
	Status  Status `json:"status"`  // waiting until the deal
	IsReady bool   `json:"isReady"` // Informational only
}

// ChatMessage is one entry in a table's chat log. It is immutable once
// appended.
type ChatMessage struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"` // unix millis
}

// Game is one table. It is not safe for concurrent use; callers serialize
// access to it.
type Game struct {
	ID         string
	HostID     string
	DealerHand []Card
	Deck       *Deck
	State      State
	Messages   []ChatMessage

	// Roster order is join order and is the deal order.
	players []*Player
}

// RoundResult is the settled outcome of a finished round.
type RoundResult struct {
	GameID      string         `json:"gameId"`
	DealerHand  []Card         `json:"dealerHand"`
	DealerValue int            `json:"dealerValue"`
	Players     []PlayerResult `json:"players"`
	FinishedAt  time.Time      `json:"finishedAt"`
}

// NewGame opens an empty waiting table with its own shuffled deck. The host
// is not seated; callers Join it.
func NewGame(id, hostID string) *Game {
	return &Game{
		ID:         id,
		HostID:     hostID,
		DealerHand: make([]Card, 0),
		Deck:       NewShuffledDeck(),
		State:      StateWaiting,
		Messages:   make([]ChatMessage, 0),
		players:    make([]*Player, 0, MaxPlayers),
	}
}

// Players returns the roster in join order.
func (g *Game) Players() []*Player {
	return g.players
}

func (g *Game) Player(playerID string) (*Player, bool) {
	for _, p := range g.players {
		if p.ID == playerID {
			return p, true
		}
	}
	return nil, false
}

func (g *Game) Join(playerID, name string) error {
	if _, exists := g.Player(playerID); exists {
		return ErrAlreadyJoined
	}

	if len(g.players) >= MaxPlayers {
		return ErrGameFull
	}

	g.players = append(g.players, &Player{
		ID:     playerID,
		Name:   name,
		Hand:   make([]Card, 0),
		Bet:    0,
		Chips:  StartingChips,
		Status: StatusWaiting,
	})

	return nil
}

// Start deals the opening hands: two passes of one card per player in roster
// order followed by one card to the dealer. Any player holding 21 after the
// deal has blackjack; the dealer hand is not consulted.
func (g *Game) Start() error {
	if g.State != StateWaiting {
		return ErrInvalidState
	}

	g.State = StatePlaying

	for range 2 {
		for _, p := range g.players {
			p.Hand = append(p.Hand, g.Deck.Draw())
			p.Status = StatusPlaying
		}
		g.DealerHand = append(g.DealerHand, g.Deck.Draw())
	}

	for _, p := range g.players {
		if HandValue(p.Hand) == Blackjack {
			p.Status = StatusBlackjack
		}
	}

	return nil
}

func (g *Game) activePlayer(playerID string) (*Player, error) {
	p, exists := g.Player(playerID)
	if !exists {
		return nil, ErrPlayerNotFound
	}
	if p.Status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	return p, nil
}

func (g *Game) Hit(playerID string) error {
	p, err := g.activePlayer(playerID)
	if err != nil {
		return err
	}

	p.Hand = append(p.Hand, g.Deck.Draw())

	value := HandValue(p.Hand)
	if value > Blackjack {
		p.Status = StatusBust
	} else if value == Blackjack {
		p.Status = StatusBlackjack
	}

	return nil
}

func (g *Game) Stand(playerID string) error {
	p, err := g.activePlayer(playerID)
	if err != nil {
		return err
	}

	p.Status = StatusStand
	return nil
}

// IsRoundOver reports whether no player is still acting. A player who
// disconnected mid-hand keeps StatusPlaying, so the round stays open.
func (g *Game) IsRoundOver() bool {
	for _, p := range g.players {
		if p.Status == StatusPlaying {
			return false
		}
	}
	return true
}

// Finish plays the dealer, settles every seat and closes the game.
func (g *Game) Finish(now time.Time) (RoundResult, error) {
	if g.State != StatePlaying {
		return RoundResult{}, ErrInvalidState
	}
	if !g.IsRoundOver() {
		return RoundResult{}, ErrRoundNotOver
	}

	g.DealerHand = PlayDealer(g.DealerHand, g.Deck.Draw)
	dealerValue := HandValue(g.DealerHand)

	results := Settle(g.players, dealerValue)

	g.State = StateFinished

	return RoundResult{
		GameID:      g.ID,
		DealerHand:  append([]Card(nil), g.DealerHand...),
		DealerValue: dealerValue,
		Players:     results,
		FinishedAt:  now,
	}, nil
}

// PlaceBet records a wager before the deal. Chips are not debited.
func (g *Game) PlaceBet(playerID string, amount int) error {
	if g.State != StateWaiting {
		return ErrInvalidState
	}

	p, exists := g.Player(playerID)
	if !exists {
		return ErrPlayerNotFound
	}

	if amount <= 0 || amount > p.Chips {
		return ErrInvalidBet
	}

	p.Bet = amount
	return nil
}

func (g *Game) SetReady(playerID string, ready bool) error {
	p, exists := g.Player(playerID)
	if !exists {
		return ErrPlayerNotFound
	}
	p.IsReady = ready
	return nil
}

// AddChat appends to the table's chat log. The log is never trimmed.
func (g *Game) AddChat(id, playerID, playerName, text string, now time.Time) ChatMessage {
	msg := ChatMessage{
		ID:         id,
		PlayerID:   playerID,
		PlayerName: playerName,
		Message:    text,
		Timestamp:  now.UnixMilli(),
	}
	g.Messages = append(g.Messages, msg)
	return msg
}
