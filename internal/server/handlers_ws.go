package server

import (
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/EstebanBorai/hoth-server/internal/errors"
	"github.com/EstebanBorai/hoth-server/internal/hub"
	"github.com/EstebanBorai/hoth-server/internal/logging"
	"github.com/EstebanBorai/hoth-server/internal/metrics"
)

func (s *Server) handleChat(c echo.Context) error {
	ip := c.RealIP()
	log := logging.WithRemote(ip)

	allowed, reason := s.limits.Acquire(ip)
	if !allowed {
		metrics.WebSocketRejectionsTotal.WithLabelValues(string(reason)).Inc()
		log.Warn("Connection refused at admission", "reason", reason)

		if reason == LimitReasonRate {
			return errors.RateLimitedError("too many connection attempts")
		}
		return errors.CapacityError("connection limit reached")
	}
	defer s.limits.Release(ip)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     NewCheckOrigin(s.config.AppURL, s.config.IsDevelopment()),
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.WebSocketRejectionsTotal.WithLabelValues("upgrade_failed").Inc()
		// Upgrade already wrote the HTTP error response
		return nil
	}

	session := hub.NewSession(s.hub, newWSConn(conn, s.clock))
	if err := session.Run(); err != nil {
		// Registration failed; the hub never took ownership of the connection
		log.Warn("Session ended with error", "error", err)
		_ = conn.Close()
	}

	return nil
}
