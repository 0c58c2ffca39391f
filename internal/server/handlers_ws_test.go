package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EstebanBorai/hoth-server/internal/config"
	"github.com/EstebanBorai/hoth-server/internal/hub"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()

	if cfg == nil {
		cfg = &config.Config{
			AppEnv:              "development",
			Port:                "0",
			AppURL:              "http://localhost:8080",
			MaxConnections:      100,
			MaxConnectionsPerIP: 100,
			ConnectionRate:      1000,
			ConnectionBurst:     1000,
			SendBufferSize:      16,
		}
	}

	clock := clockwork.NewRealClock()
	h := hub.New(cfg.MaxConnections, cfg.SendBufferSize, clock)
	srv := NewServer(cfg, h, clock)

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(func() {
		ts.Close()
		h.Stop()
	})

	return srv, ts
}

func dialChat(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// waitForClients blocks until the hub reports the expected number of
// registered connections. Dial returning only guarantees the handshake
// finished, not that the session has been registered yet.
func waitForClients(t *testing.T, srv *Server, want int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return srv.hub.ClientCount() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func postBody(body string) []byte {
	return []byte(fmt.Sprintf(`{"type":"post","payload":{"body":%q}}`, body))
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestHandleChat_BroadcastBetweenClients(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	sender := dialChat(t, ts)
	receiver := dialChat(t, ts)
	waitForClients(t, srv, 2)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, postBody("hello there")))

	frame := readFrame(t, receiver)
	assert.JSONEq(t, `"post"`, string(frame["type"]))
	assert.Contains(t, string(frame["payload"]), "hello there")

	// The sender must not receive its own message; the next frame it sees
	// should be the receiver's reply.
	require.NoError(t, receiver.WriteMessage(websocket.TextMessage, postBody("hi back")))

	frame = readFrame(t, sender)
	assert.Contains(t, string(frame["payload"]), "hi back")
}

func TestHandleChat_MalformedMessageGetsErrorNotice(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	sender := dialChat(t, ts)
	bystander := dialChat(t, ts)
	waitForClients(t, srv, 2)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("{not json")))

	frame := readFrame(t, sender)
	assert.JSONEq(t, `"error"`, string(frame["type"]))

	// The connection survives the bad message
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, postBody("still here")))

	frame = readFrame(t, bystander)
	assert.Contains(t, string(frame["payload"]), "still here")
}

func TestHandleChat_PerIPLimitRejects(t *testing.T) {
	cfg := &config.Config{
		AppEnv:              "development",
		AppURL:              "http://localhost:8080",
		MaxConnections:      100,
		MaxConnectionsPerIP: 1,
		ConnectionRate:      1000,
		ConnectionBurst:     1000,
		SendBufferSize:      16,
	}
	_, ts := newTestServer(t, cfg)

	dialChat(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleChat_RateLimitRejectsWith429(t *testing.T) {
	cfg := &config.Config{
		AppEnv:              "development",
		AppURL:              "http://localhost:8080",
		MaxConnections:      100,
		MaxConnectionsPerIP: 100,
		ConnectionRate:      1,
		ConnectionBurst:     1,
		SendBufferSize:      16,
	}
	_, ts := newTestServer(t, cfg)

	dialChat(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHandleChat_FailedSessionClosesConnection(t *testing.T) {
	// Hub capacity below the admission caps, so the second connection passes
	// admission, upgrades, and then fails hub registration.
	cfg := &config.Config{
		AppEnv:              "development",
		AppURL:              "http://localhost:8080",
		MaxConnections:      100,
		MaxConnectionsPerIP: 100,
		ConnectionRate:      1000,
		ConnectionBurst:     1000,
		SendBufferSize:      16,
	}
	clock := clockwork.NewRealClock()
	h := hub.New(1, cfg.SendBufferSize, clock)
	srv := NewServer(cfg, h, clock)

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(func() {
		ts.Close()
		h.Stop()
	})

	dialChat(t, ts)
	waitForClients(t, srv, 1)

	rejected := dialChat(t, ts)
	require.NoError(t, rejected.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := rejected.ReadMessage()
	assert.Error(t, err, "connection must be closed after registration failure")
}

func TestHandleChat_DisconnectedClientStopsReceiving(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	sender := dialChat(t, ts)
	leaver := dialChat(t, ts)
	stayer := dialChat(t, ts)
	waitForClients(t, srv, 3)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, postBody("first")))
	readFrame(t, leaver)
	readFrame(t, stayer)

	require.NoError(t, leaver.Close())
	waitForClients(t, srv, 2)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, postBody("second")))

	frame := readFrame(t, stayer)
	assert.Contains(t, string(frame["payload"]), "second")
}
