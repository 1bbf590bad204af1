// Package events mirrors table activity onto a Redis pub/sub channel so
// spectator or analytics processes can follow games without joining them.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// Event is what goes on the channel.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	GameID    string `json:"gameId"`
	Timestamp int64  `json:"timestamp"` // unix millis
	Payload   any    `json:"payload,omitempty"`
}

func New(eventType, gameID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		GameID:    gameID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

type Publisher interface {
	Publish(Event)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}
func (Nop) Close() error { return nil }

type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
	wg      sync.WaitGroup

	published atomic.Int64
	dropped   atomic.Int64
}

// NewRedisPublisher connects to addr and pings it once.
func NewRedisPublisher(ctx context.Context, addr, channel string, logger *zap.Logger) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		logger:  logger.Named("events"),
	}, nil
}

// Publish sends evt in the background and never blocks the caller.
func (p *RedisPublisher) Publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Warn("event marshal failed", zap.String("type", evt.Type), zap.Error(err))
		p.dropped.Add(1)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
			p.logger.Warn("redis publish failed",
				zap.String("type", evt.Type), zap.String("game_id", evt.GameID), zap.Error(err))
			p.dropped.Add(1)
			return
		}
		p.published.Add(1)
	}()
}

// Stats returns the number of events published and dropped so far.
func (p *RedisPublisher) Stats() (published, dropped int64) {
	return p.published.Load(), p.dropped.Load()
}

// Close waits for in-flight publishes and closes the client.
func (p *RedisPublisher) Close() error {
	p.wg.Wait()
	return p.rdb.Close()
}
