package server

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const inboundQueueSize = 256

type inbound struct {
	connectionID string
	data         []byte
}

// Dispatcher runs every inbound frame, from every connection, on a single
// goroutine. A frame is fully handled, broadcasts included, before the next
// one starts.
type Dispatcher struct {
	in     chan inbound
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
	handle func(connectionID string, data []byte)
	logger *zap.Logger
}

func NewDispatcher(handle func(connectionID string, data []byte), logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		in:     make(chan inbound, inboundQueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		handle: handle,
		logger: logger,
	}
	go d.run()
	return d
}

// Submit queues a frame. It blocks while the queue is full and reports false
// if ctx ends or the dispatcher has stopped first.
func (d *Dispatcher) Submit(ctx context.Context, connectionID string, data []byte) bool {
	select {
	case <-d.quit:
		return false
	default:
	}

	select {
	case d.in <- inbound{connectionID: connectionID, data: data}:
		return true
	case <-d.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case msg := <-d.in:
			d.process(msg)
		case <-d.quit:
			// Drain what was accepted before Stop.
			for {
				select {
				case msg := <-d.in:
					d.process(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) process(msg inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling frame",
				zap.String("connection_id", msg.connectionID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	d.handle(msg.connectionID, msg.data)
}

// Stop processes the frames already queued and returns once the loop has
// exited or ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.once.Do(func() { close(d.quit) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
