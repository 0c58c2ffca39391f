package server

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
)

// wsConn adapts a gorilla websocket connection to the hub.Conn interface.
// Deadline bookkeeping lives here so the hub stays transport-agnostic.
type wsConn struct {
	conn  *websocket.Conn
	clock clockwork.Clock
}

func newWSConn(conn *websocket.Conn, clock clockwork.Clock) *wsConn {
	w := &wsConn{conn: conn, clock: clock}

	_ = conn.SetReadDeadline(clock.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(w.clock.Now().Add(pongTimeout))
	})

	return w
}

func (w *wsConn) ReadFrame() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) WriteFrame(data []byte) error {
	if err := w.conn.SetWriteDeadline(w.clock.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Ping() error {
	if err := w.conn.SetWriteDeadline(w.clock.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) WriteClose(reason string) error {
	_ = w.conn.SetWriteDeadline(w.clock.Now().Add(writeTimeout))
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	return w.conn.WriteMessage(websocket.CloseMessage, message)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
