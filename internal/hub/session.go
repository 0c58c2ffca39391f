package hub

import (
	"github.com/EstebanBorai/hoth-server/internal/logging"
	"github.com/EstebanBorai/hoth-server/internal/metrics"
	"github.com/EstebanBorai/hoth-server/internal/protocol"
)

// Session drives one connection through its lifecycle:
// register, receive loop, unregister.
type Session struct {
	hub  *Hub
	conn Conn
}

// NewSession prepares a session for a freshly accepted connection.
func NewSession(h *Hub, conn Conn) *Session {
	return &Session{hub: h, conn: conn}
}

// Run registers the connection and blocks in its receive loop until the peer
// disconnects or the transport fails. Registration failure is returned to the
// caller; errors inside the loop are terminal for this connection only and
// never surface as hub errors.
//
// Malformed inbound messages do not end the session: the sender gets a single
// error notice per offending message and the loop continues.
func (s *Session) Run() error {
	id, cw, err := s.hub.register(s.conn)
	if err != nil {
		return err
	}

	log := logging.WithConnection(id.String())
	log.Info("connection established")

	defer func() {
		s.hub.Unregister(id)
		log.Info("connection closed")
	}()

	for {
		raw, err := s.conn.ReadFrame()
		if err != nil {
			log.Debug("receive loop ended", "error", err)
			return nil
		}
		cw.recordActivity()

		msg, err := protocol.Decode(raw)
		if err != nil {
			reason := protocol.FailureReason(err)
			metrics.HubDecodeErrorsTotal.WithLabelValues(reason).Inc()
			log.Info("rejected inbound message", "reason", reason)
			s.hub.Notify(id, protocol.NewErrorNotice(err.Error()))
			continue
		}

		s.hub.Broadcast(id, msg)
	}
}
