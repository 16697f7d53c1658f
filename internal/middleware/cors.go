package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cmc-proxy/internal/response"
)

// CORS attaches the fixed CORS header set to every response and answers
// OPTIONS on any path with an empty 204.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			response.SetCORS(c.Response().Header())

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
