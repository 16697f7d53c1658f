// Package response writes JSON bodies with the fixed CORS header set every
// response of the proxy carries.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CORSHeaders is attached to every response, preflight included.
var CORSHeaders = map[string]string{
	echo.HeaderAccessControlAllowOrigin:  "*",
	echo.HeaderAccessControlAllowMethods: "GET, POST, OPTIONS",
	echo.HeaderAccessControlAllowHeaders: "Content-Type, Authorization",
	echo.HeaderAccessControlMaxAge:       "86400",
}

// SetCORS writes CORSHeaders into h, replacing any existing values.
func SetCORS(h http.Header) {
	for k, v := range CORSHeaders {
		h.Set(k, v)
	}
}

// JSON serializes payload and writes it with status, Content-Type
// application/json and the CORS headers. A json.RawMessage is written as is.
func JSON(c echo.Context, status int, payload any) error {
	body, ok := payload.(json.RawMessage)
	if !ok {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
	SetCORS(c.Response().Header())
	return c.Blob(status, echo.MIMEApplicationJSON, body)
}

// Error writes {"error": msg} with status.
func Error(c echo.Context, status int, msg string) error {
	return JSON(c, status, map[string]string{"error": msg})
}
