package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cmc-proxy/internal/config"
	"cmc-proxy/internal/model"
	"cmc-proxy/internal/response"
	"cmc-proxy/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// isoMillis matches the ISO-8601 form browsers produce: UTC, millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z"

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	service *service.QuoteService
	version Version
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, svc *service.QuoteService, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, service: svc, version: v, now: time.Now}
}

// Health reports liveness with the current UTC time. It never calls upstream.
func (h *HealthHandler) Health(c echo.Context) error {
	return response.JSON(c, http.StatusOK, model.HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(isoMillis),
	})
}

// Status returns proxy status information. The API key itself is never included.
func (h *HealthHandler) Status(c echo.Context) error {
	return response.JSON(c, http.StatusOK, map[string]any{
		"status":             "ok",
		"version":            string(h.version),
		"upstream_url":       h.cfg.Upstream.BaseURL,
		"api_key_configured": h.service.KeyConfigured(),
		"cache_enabled":      h.service.CacheEnabled(),
	})
}
