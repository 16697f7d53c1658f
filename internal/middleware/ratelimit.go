package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"cmc-proxy/internal/config"
	"cmc-proxy/internal/response"
)

// NewRateLimiterStore builds the in-process per-IP limiter store. Any
// echomw.RateLimiterStore (for example one backed by a shared counter) can be
// passed to RateLimiter instead.
func NewRateLimiterStore(cfg config.RateLimitConfig) echomw.RateLimiterStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(cfg.RequestsPerSecond),
		Burst: cfg.Burst,
	})
}

// RateLimiter rejects callers the store denies with a JSON 429. Preflight
// requests are never limited.
func RateLimiter(store echomw.RateLimiterStore) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodOptions
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return response.Error(c, http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return response.Error(c, http.StatusTooManyRequests, "Too many requests")
		},
	})
}
