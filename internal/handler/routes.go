package handler

import (
	"github.com/labstack/echo/v4"

	"cmc-proxy/internal/config"
	"cmc-proxy/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Paths match
// exactly and regardless of method; OPTIONS never reaches them (see
// middleware.CORS).
func RegisterRoutes(e *echo.Echo, quotes *QuoteHandler, health *HealthHandler, cfg *config.Config, m *metrics.Metrics) {
	e.Any("/health", health.Health)
	e.Any("/api/quotes/latest", quotes.Latest)
	e.Any("/api/quotes/historical", quotes.Historical)
	e.Any("/api/map", quotes.Map)

	e.Any("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		m.TrackRoute(cfg.Metrics.Path)
		e.Any(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
	}
}
