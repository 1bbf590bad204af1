package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(id string, queueSize int) *Client {
	return NewClient(id, nil, queueSize, zap.NewNop())
}

// ============================================================================
// CONNECTION MANAGER
// ============================================================================

func TestConnectionManager_AddConnection(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()

	cm.AddConnection(testClient("conn-1", 4))

	assert.Equal(1, cm.Count())
	assert.NotNil(cm.GetClient("conn-1"))
	assert.Nil(cm.GetClient("conn-2"))

	_, bound := cm.PlayerForConnection("conn-1")
	assert.False(bound, "a fresh connection has no player")
}

func TestConnectionManager_BindPlayer(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()
	client := testClient("conn-1", 4)
	cm.AddConnection(client)

	require.NoError(t, cm.BindPlayer("conn-1", "player-1"))

	playerID, ok := cm.PlayerForConnection("conn-1")
	assert.True(ok)
	assert.Equal("player-1", playerID)

	found, ok := cm.ClientForPlayer("player-1")
	assert.True(ok)
	assert.Same(client, found)
}

func TestConnectionManager_BindPlayer_UnknownConnection(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()

	err := cm.BindPlayer("ghost", "player-1")

	assert.ErrorIs(err, ErrConnectionNotFound)
	_, ok := cm.ClientForPlayer("player-1")
	assert.False(ok)
}

func TestConnectionManager_SecondBindKeepsFirstPlayer(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()
	client := testClient("conn-1", 4)
	cm.AddConnection(client)

	require.NoError(t, cm.BindPlayer("conn-1", "player-1"))
	err := cm.BindPlayer("conn-1", "player-2")

	assert.ErrorIs(err, ErrConnectionBound)
	found, ok := cm.ClientForPlayer("player-1")
	assert.True(ok, "the first player still reaches this connection")
	assert.Same(client, found)
	_, ok = cm.ClientForPlayer("player-2")
	assert.False(ok)

	playerID, _ := cm.PlayerForConnection("conn-1")
	assert.Equal("player-1", playerID)
}

func TestConnectionManager_PlayerMovesToNewConnection(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()
	cm.AddConnection(testClient("conn-1", 4))
	fresh := testClient("conn-2", 4)
	cm.AddConnection(fresh)

	require.NoError(t, cm.BindPlayer("conn-1", "player-1"))
	require.NoError(t, cm.BindPlayer("conn-2", "player-1"))

	found, _ := cm.ClientForPlayer("player-1")
	assert.Same(fresh, found)
	_, bound := cm.PlayerForConnection("conn-1")
	assert.False(bound)
}

func TestConnectionManager_RemoveConnection(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()
	client := testClient("conn-1", 4)
	cm.AddConnection(client)
	require.NoError(t, cm.BindPlayer("conn-1", "player-1"))

	playerID := cm.RemoveConnection("conn-1")

	assert.Equal("player-1", playerID)
	assert.Equal(0, cm.Count())
	assert.Nil(cm.GetClient("conn-1"))
	_, ok := cm.PlayerForConnection("conn-1")
	assert.False(ok)
	_, ok = cm.ClientForPlayer("player-1")
	assert.False(ok)

	assert.False(client.enqueue([]byte("x")), "removed client accepts no frames")
}

func TestConnectionManager_RemoveUnboundConnection(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()
	cm.AddConnection(testClient("conn-1", 4))

	assert.Empty(cm.RemoveConnection("conn-1"))
	assert.Empty(cm.RemoveConnection("conn-1"), "second removal is harmless")
}

func TestConnectionManager_MultiplePlayers(t *testing.T) {
	assert := assert.New(t)
	cm := NewConnectionManager()
	for _, id := range []string{"a", "b", "c"} {
		cm.AddConnection(testClient("conn-"+id, 4))
		require.NoError(t, cm.BindPlayer("conn-"+id, "player-"+id))
	}

	cm.RemoveConnection("conn-b")

	_, ok := cm.ClientForPlayer("player-a")
	assert.True(ok)
	_, ok = cm.ClientForPlayer("player-b")
	assert.False(ok)
	_, ok = cm.ClientForPlayer("player-c")
	assert.True(ok)
	assert.Len(cm.Clients(), 2)
}

// ============================================================================
// CLIENT SEND QUEUE
// ============================================================================

func TestClient_EnqueueDropsWhenFull(t *testing.T) {
	assert := assert.New(t)
	client := testClient("conn-1", 2)

	assert.True(client.enqueue([]byte("1")))
	assert.True(client.enqueue([]byte("2")))
	assert.False(client.enqueue([]byte("3")), "full queue must not block")

	assert.Equal("1", string(<-client.send))
	assert.True(client.enqueue([]byte("4")))
}
