package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"cmc-proxy/internal/middleware"
)

func newErrorTestEcho(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger)
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())
	return e
}

func TestErrorHandler_Panic(t *testing.T) {
	e := newErrorTestEcho(discardLogger())
	e.GET("/api/map", func(c echo.Context) error {
		panic("nil map write")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/map", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assertInternalError(t, rec)
	if !strings.Contains(rec.Body.String(), "nil map write") {
		t.Errorf("body = %q, want panic detail", rec.Body.String())
	}
}

func TestErrorHandler_ReturnedError(t *testing.T) {
	var buf bytes.Buffer
	e := newErrorTestEcho(slog.New(slog.NewTextHandler(&buf, nil)))
	e.GET("/api/map", func(c echo.Context) error {
		return errors.New("decode cryptocurrency/map response: unexpected end of JSON input")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/map", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assertJSONBody(t, rec, `{"error":"Internal server error","message":"decode cryptocurrency/map response: unexpected end of JSON input"}`)
	if !strings.Contains(buf.String(), "unhandled error") {
		t.Errorf("expected the failure to be logged, got %q", buf.String())
	}
}

func TestErrorHandler_HTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", echo.ErrNotFound, http.StatusNotFound, `{"error":"Not found"}`},
		{"method not allowed", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, `{"error":"Method Not Allowed"}`},
		{"custom message", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body too large"), http.StatusRequestEntityTooLarge, `{"error":"body too large"}`},
		{"internal", echo.ErrInternalServerError, http.StatusInternalServerError, `{"error":"Internal server error","message":"code=500, message=Internal Server Error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newErrorTestEcho(discardLogger())
			e.GET("/x", func(c echo.Context) error { return tt.err })

			req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			assertJSONBody(t, rec, tt.wantBody)
			assertCORS(t, rec.Header())
		})
	}
}

func TestErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := newErrorTestEcho(discardLogger())
	e.GET("/x", func(c echo.Context) error {
		_ = c.String(http.StatusOK, "partial")
		return errors.New("late failure")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "partial" {
		t.Errorf("got %d %q, want untouched 200 partial", rec.Code, rec.Body.String())
	}
}
