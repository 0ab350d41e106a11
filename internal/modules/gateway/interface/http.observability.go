package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"sociaWs/internal/modules/gateway/application/usecase"
)

// NewStatsHandler exposes the gateway counters as JSON.
func NewStatsHandler(gw *usecase.Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, gw.Stats())
	}
}

// NewHealthHandler reports healthy only while the internal invariants hold.
func NewHealthHandler(gw *usecase.Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !gw.Healthy() {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	}
}
