package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================================================
// HTTP ENDPOINTS
// ============================================================================

func TestRootHandler(t *testing.T) {
	assert := assert.New(t)
	s, _ := newUnitServer(t)
	ts := httptest.NewServer(s.RegisterRoutes())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(`{"message":"blackjack server"}`, string(body))
}

func TestHealthHandler(t *testing.T) {
	assert := assert.New(t)
	env := setupTestServer(t)
	conn, _ := join(t, env)
	createGame(t, conn, "Alice")

	httpURL := "http" + strings.TrimSuffix(strings.TrimPrefix(env.url, "ws"), "/websocket")
	resp, err := http.Get(httpURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status      string            `json:"status"`
		Games       int               `json:"games"`
		Connections int               `json:"connections"`
		Archive     map[string]string `json:"archive"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal("ok", body.Status)
	assert.Equal(1, body.Games)
	assert.Equal(1, body.Connections)
	assert.Equal("disabled", body.Archive["status"])
}

func TestHealthHandler_CORSHeaders(t *testing.T) {
	assert := assert.New(t)
	s, _ := newUnitServer(t)
	handler := s.RegisterRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(http.StatusOK, rr.Code)
	assert.Equal("*", rr.Header().Get("Access-Control-Allow-Origin"))
}

// ============================================================================
// WEBSOCKET LIFECYCLE
// ============================================================================

func TestWebsocket_UpgradesOnRoot(t *testing.T) {
	env := setupTestServer(t)
	rootURL := strings.TrimSuffix(env.url, "/websocket")

	conn := dial(t, rootURL)
	send(t, conn, map[string]string{"type": "ping"})
	readType(t, conn, TypePong)
}

func TestWebsocket_ConnectionRegistration(t *testing.T) {
	assert := assert.New(t)
	env := setupTestServer(t)

	conn := dial(t, env.url)
	expectQuiet(t, conn)
	assert.Equal(1, env.server.connectionManager.Count())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(func() bool {
		return env.server.connectionManager.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocket_MultipleConnections(t *testing.T) {
	env := setupTestServer(t)

	conns := make([]*websocket.Conn, 5)
	for i := range conns {
		conns[i] = dial(t, env.url)
	}
	for _, c := range conns {
		expectQuiet(t, c)
	}

	assert.Equal(t, len(conns), env.server.connectionManager.Count())
}

func TestWebsocket_BinaryFramesIgnored(t *testing.T) {
	env := setupTestServer(t)
	conn := dial(t, env.url)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte(`{"type":"join"}`)))

	send(t, conn, map[string]string{"type": "ping"})
	readType(t, conn, TypePong)
}

// ============================================================================
// SHUTDOWN
// ============================================================================

func TestShutdown_ClosesSockets(t *testing.T) {
	s := NewServer(testConfig(), zap.NewNop(), &recordingArchive{}, &recordingPublisher{})
	ts := httptest.NewServer(s.RegisterRoutes())
	defer ts.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(ts.URL, "http")+"/websocket")
	expectQuiet(t, conn)

	// The client has to be reading to complete the close handshake.
	readErr := make(chan error, 1)
	go func() {
		readCtx, readCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer readCancel()
		_, _, err := conn.Read(readCtx)
		readErr <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, s.Shutdown(ctx), "shutdown is idempotent")

	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(<-readErr))
}
