package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/EstebanBorai/hoth-server/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(s.clock.Since(s.startTime).Seconds()),
	})
}

// handleReadiness reports ready only while the hub actor is responsive.
// A negative client count means the hub failed to answer within its
// command timeout.
func (s *Server) handleReadiness(c echo.Context) error {
	count := s.hub.ClientCount()
	if count < 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": count,
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
