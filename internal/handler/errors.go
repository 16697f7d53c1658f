package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"cmc-proxy/internal/model"
	"cmc-proxy/internal/response"
)

// ErrorHandler is the central echo error handler and the only place errors
// become responses. Unknown routes render {"error":"Not found"}; unexpected
// failures render a 500 envelope carrying the error text.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var werr error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he) && he.Code == http.StatusNotFound:
			werr = response.Error(c, http.StatusNotFound, "Not found")
		case errors.As(err, &he) && he.Code != http.StatusInternalServerError:
			msg := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			}
			werr = response.Error(c, he.Code, msg)
		default:
			logger.Error("unhandled error",
				"err", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
			)
			werr = response.JSON(c, http.StatusInternalServerError, model.ErrorResponse{
				Error:   "Internal server error",
				Message: err.Error(),
			})
		}

		if werr != nil {
			logger.Error("write error response", "err", werr)
		}
	}
}
