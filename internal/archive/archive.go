// Package archive keeps a write-only history of settled rounds in Postgres.
// Nothing here is read back to restore tables; live games stay in memory.
package archive

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"blackjack-server/internal/blackjack"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	queueSize    = 64
	writeTimeout = 5 * time.Second
)

// Nop is used when no database is configured.
type Nop struct{}

func (Nop) Record(blackjack.RoundResult) {}
func (Nop) Close(context.Context) error { return nil }
func (Nop) Health(context.Context) map[string]string {
	return map[string]string{"status": "disabled"}
}

type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	queue  chan blackjack.RoundResult
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Open connects, applies pending migrations and starts the writer.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{
		pool:   pool,
		logger: logger.Named("archive"),
		queue:  make(chan blackjack.RoundResult, queueSize),
		done:   make(chan struct{}),
	}
	go s.run()

	return s, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Record queues a settled round. It never blocks; when the writer falls
// behind the round is dropped and logged.
func (s *Store) Record(round blackjack.RoundResult) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	select {
	case s.queue <- round:
	default:
		s.logger.Warn("archive queue full, dropping round", zap.String("game_id", round.GameID))
	}
}

func (s *Store) run() {
	defer close(s.done)

	for round := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.insert(ctx, round); err != nil {
			s.logger.Error("failed to archive round", zap.String("game_id", round.GameID), zap.Error(err))
		}
		cancel()
	}
}

func (s *Store) insert(ctx context.Context, round blackjack.RoundResult) error {
	dealerHand, err := json.Marshal(round.DealerHand)
	if err != nil {
		return fmt.Errorf("failed to serialize dealer hand: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var roundID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO rounds (game_id, dealer_hand, dealer_value, finished_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, round.GameID, dealerHand, round.DealerValue, round.FinishedAt).Scan(&roundID)
		if err != nil {
			return fmt.Errorf("failed to insert round: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"round_players"},
			[]string{"round_id", "seat", "player_id", "name", "hand_value", "bet", "outcome", "final_status", "chips_delta", "chips_after"},
			pgx.CopyFromSlice(len(round.Players), func(i int) ([]any, error) {
				p := round.Players[i]
				return []any{roundID, i, p.PlayerID, p.Name, p.HandValue, p.Bet,
					string(p.Outcome), string(p.FinalStatus), p.ChipsDelta, p.ChipsAfter}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert round players: %w", err)
		}
		return nil
	})
}

// RecentRounds returns up to limit rounds, newest first.
func (s *Store) RecentRounds(ctx context.Context, limit int) ([]blackjack.RoundResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, game_id, dealer_hand, dealer_value, finished_at
		FROM rounds
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}

	var ids []int64
	var rounds []blackjack.RoundResult
	for rows.Next() {
		var id int64
		var dealerHand []byte
		var r blackjack.RoundResult
		if err := rows.Scan(&id, &r.GameID, &dealerHand, &r.DealerValue, &r.FinishedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		if err := json.Unmarshal(dealerHand, &r.DealerHand); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to deserialize dealer hand: %w", err)
		}
		ids = append(ids, id)
		rounds = append(rounds, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round rows: %w", err)
	}

	for i, id := range ids {
		players, err := s.roundPlayers(ctx, id)
		if err != nil {
			return nil, err
		}
		rounds[i].Players = players
	}

	return rounds, nil
}

func (s *Store) roundPlayers(ctx context.Context, roundID int64) ([]blackjack.PlayerResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT player_id, name, hand_value, bet, outcome, final_status, chips_delta, chips_after
		FROM round_players
		WHERE round_id = $1
		ORDER BY seat
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query round players: %w", err)
	}

	players, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (blackjack.PlayerResult, error) {
		var p blackjack.PlayerResult
		var outcome, status string
		err := row.Scan(&p.PlayerID, &p.Name, &p.HandValue, &p.Bet, &outcome, &status, &p.ChipsDelta, &p.ChipsAfter)
		p.Outcome = blackjack.Outcome(outcome)
		p.FinalStatus = blackjack.Status(status)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan round players: %w", err)
	}
	return players, nil
}

func (s *Store) Health(ctx context.Context) map[string]string {
	stats := make(map[string]string)

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	ps := s.pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(ps.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(ps.IdleConns()))
	stats["queued_rounds"] = strconv.Itoa(len(s.queue))
	return stats
}

// Close stops accepting rounds, waits for queued ones to be written and
// closes the pool. If ctx expires first the remaining rounds are lost.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	var err error
	select {
	case <-s.done:
	case <-ctx.Done():
		err = fmt.Errorf("archive flush interrupted: %w", ctx.Err())
	}

	s.pool.Close()
	return err
}
