package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackjack-server/internal/blackjack"
)

var (
	ErrGameNotFound  = errors.New("GAME_NOT_FOUND: Game not found")
	ErrAlreadyInGame = errors.New("ALREADY_IN_GAME: Player is already seated at another table")
)

// GameManager is the table registry. Games are created on request and kept
// for the life of the process.
//
// Every game is mutated only from the dispatcher goroutine; mu guards the
// maps themselves, which /health reads from HTTP handlers.
type GameManager struct {
	games       map[string]*blackjack.Game // gameID → table
	playerGames map[string]string          // playerID → gameID, one table per player
	mu          sync.RWMutex               // Protects both maps
	now         func() time.Time           // Clock for chat and round timestamps; tests pin it
}

// NewGameManager creates an empty registry on the wall clock.
func NewGameManager() *GameManager {
	return &GameManager{
		games:       make(map[string]*blackjack.Game),
		playerGames: make(map[string]string),
		now:         time.Now,
	}
}

// CreateGame opens a table with hostID seated first.
func (gm *GameManager) CreateGame(hostID, playerName string) (*blackjack.Game, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, seated := gm.playerGames[hostID]; seated {
		return nil, ErrAlreadyInGame
	}

	game := blackjack.NewGame(uuid.NewString(), hostID)
	if err := game.Join(hostID, playerName); err != nil {
		return nil, err
	}

	gm.games[game.ID] = game
	gm.playerGames[hostID] = game.ID

	return game, nil
}

// JoinGame seats playerID at an existing table. It fails with
// ErrGameNotFound, ErrAlreadyInGame when the player sits at another table,
// or the engine's ROOM_FULL / ALREADY_JOINED errors.
func (gm *GameManager) JoinGame(gameID, playerID, playerName string) (*blackjack.Game, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}

	if current, seated := gm.playerGames[playerID]; seated && current != gameID {
		return nil, ErrAlreadyInGame
	}

	if err := game.Join(playerID, playerName); err != nil {
		return nil, err
	}

	gm.playerGames[playerID] = gameID
	return game, nil
}

// GetGame looks a table up by id.
func (gm *GameManager) GetGame(gameID string) (*blackjack.Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// GameForPlayer returns the id of the table the player sits at.
func (gm *GameManager) GameForPlayer(playerID string) (string, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	gameID, ok := gm.playerGames[playerID]
	return gameID, ok
}

// Count is the number of tables ever created; games are never removed.
func (gm *GameManager) Count() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.games)
}

// StartGame deals the opening hands. Any caller with the id may start it.
func (gm *GameManager) StartGame(gameID string) (*blackjack.Game, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if err := game.Start(); err != nil {
		return nil, err
	}
	return game, nil
}

// Hit draws for the player and settles the round if nobody is left acting.
// A seated player without an active hand still runs the round-over check, so
// a table dealt nothing but naturals settles on its first turn command. Only
// an unknown game or a player outside the roster is an error.
func (gm *GameManager) Hit(gameID, playerID string) (*blackjack.Game, *blackjack.RoundResult, error) {
	return gm.turn(gameID, playerID, (*blackjack.Game).Hit)
}

// Stand ends the player's turn, with the same round-over handling as Hit.
func (gm *GameManager) Stand(gameID, playerID string) (*blackjack.Game, *blackjack.RoundResult, error) {
	return gm.turn(gameID, playerID, (*blackjack.Game).Stand)
}

func (gm *GameManager) turn(gameID, playerID string, act func(*blackjack.Game, string) error) (*blackjack.Game, *blackjack.RoundResult, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, nil, err
	}
	if err := act(game, playerID); err != nil && !errors.Is(err, blackjack.ErrNotPlaying) {
		return nil, nil, err
	}
	return game, gm.finishIfOver(game), nil
}

// finishIfOver plays the dealer and settles once no player is acting. It
// returns nil while the round is open, and for a game that is not in play
// (waiting, or already finished and paid out).
func (gm *GameManager) finishIfOver(game *blackjack.Game) *blackjack.RoundResult {
	if !game.IsRoundOver() {
		return nil
	}
	result, err := game.Finish(gm.now())
	if err != nil {
		return nil
	}
	return &result
}

// PlaceBet records a wager while the table is waiting.
func (gm *GameManager) PlaceBet(gameID, playerID string, amount int) (*blackjack.Game, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if err := game.PlaceBet(playerID, amount); err != nil {
		return nil, err
	}
	return game, nil
}

// SetReady toggles the player's ready flag. No transition reads it.
func (gm *GameManager) SetReady(gameID, playerID string, ready bool) (*blackjack.Game, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if err := game.SetReady(playerID, ready); err != nil {
		return nil, err
	}
	return game, nil
}

// Chat appends to the table log. The display name comes from the sender,
// not from the roster.
func (gm *GameManager) Chat(gameID, playerID, playerName, text string) (*blackjack.Game, blackjack.ChatMessage, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, blackjack.ChatMessage{}, err
	}
	msg := game.AddChat(uuid.NewString(), playerID, playerName, text, gm.now())
	return game, msg, nil
}
