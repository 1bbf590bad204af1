package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

var (
	ErrConnectionNotFound = errors.New("CONNECTION_NOT_FOUND: Connection is not registered")
	ErrConnectionBound    = errors.New("CONNECTION_BOUND: Connection already has a player")
)

// Client is one live websocket. Frames are queued on send and written by
// writeLoop so a slow socket never holds up the dispatcher.
type Client struct {
	id     string          // Connection id, a UUID assigned at accept
	conn   *websocket.Conn // nil in unit tests that never write
	send   chan []byte     // Outbound frames, bounded by SEND_QUEUE_SIZE
	done   chan struct{}   // Closed once the connection is removed
	once   sync.Once       // Guards close(done)
	logger *zap.Logger
}

// NewClient wraps an accepted socket. The caller starts writeLoop.
func NewClient(id string, conn *websocket.Conn, queueSize int, logger *zap.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("connection_id", id)),
	}
}

func (c *Client) ID() string {
	return c.id
}

// enqueue hands a frame to the writer. It reports false when the queue is
// full or the client is closed; the frame is dropped in both cases.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// writeLoop writes queued frames until the client is closed, ctx ends or a
// write fails. Each write has its own timeout.
func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case frame := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// ConnectionManager maps connections to players in both directions. All
// three maps change together under mu.
type ConnectionManager struct {
	clients     map[string]*Client // connectionID → client
	players     map[string]string  // connectionID → playerID
	connections map[string]string  // playerID → connectionID
	mu          sync.RWMutex
}

// NewConnectionManager returns an empty registry.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients:     make(map[string]*Client),
		players:     make(map[string]string),
		connections: make(map[string]string),
	}
}

// AddConnection registers a socket before it has a player.
func (cm *ConnectionManager) AddConnection(c *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[c.id] = c
}

// BindPlayer attaches playerID to a registered connection. Each connection
// carries one player for its lifetime: binding a second one fails with
// ErrConnectionBound and leaves the first mapping intact. A player id that
// was bound elsewhere moves to this connection.
func (cm *ConnectionManager) BindPlayer(connectionID, playerID string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.clients[connectionID]; !exists {
		return ErrConnectionNotFound
	}
	if _, bound := cm.players[connectionID]; bound {
		return ErrConnectionBound
	}

	if oldConn, bound := cm.connections[playerID]; bound {
		delete(cm.players, oldConn)
	}

	cm.players[connectionID] = playerID
	cm.connections[playerID] = connectionID
	return nil
}

// RemoveConnection drops every entry for the connection and closes its
// writer. It returns the player that was bound to it, if any.
func (cm *ConnectionManager) RemoveConnection(connectionID string) string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if c, exists := cm.clients[connectionID]; exists {
		c.close()
	}
	delete(cm.clients, connectionID)

	playerID, bound := cm.players[connectionID]
	if bound {
		delete(cm.players, connectionID)
		if cm.connections[playerID] == connectionID {
			delete(cm.connections, playerID)
		}
	}
	return playerID
}

// PlayerForConnection reports the player bound to the connection, if any.
func (cm *ConnectionManager) PlayerForConnection(connectionID string) (string, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	playerID, ok := cm.players[connectionID]
	return playerID, ok
}

// ClientForPlayer resolves a player to its live client. It reports false for
// players who never joined or whose socket has closed.
func (cm *ConnectionManager) ClientForPlayer(playerID string) (*Client, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connectionID, ok := cm.connections[playerID]
	if !ok {
		return nil, false
	}
	c, ok := cm.clients[connectionID]
	return c, ok
}

// GetClient returns nil for an unknown connection.
func (cm *ConnectionManager) GetClient(connectionID string) *Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[connectionID]
}

// Count is the number of open sockets, joined or not.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// Clients returns a snapshot of every registered client.
func (cm *ConnectionManager) Clients() []*Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make([]*Client, 0, len(cm.clients))
	for _, c := range cm.clients {
		out = append(out, c)
	}
	return out
}
