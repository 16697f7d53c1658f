package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"cmc-proxy/internal/client"
	"cmc-proxy/internal/config"
	"cmc-proxy/internal/metrics"
	"cmc-proxy/internal/middleware"
	"cmc-proxy/internal/service"
)

var wantCORS = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization",
	"Access-Control-Max-Age":       "86400",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testProxy is a fully wired proxy in front of a fake CoinMarketCap.
type testProxy struct {
	e        *echo.Echo
	calls    *atomic.Int32
	lastReq  atomic.Pointer[http.Request]
	upstream *httptest.Server
	cfg      *config.Config
}

// newTestProxy wires the proxy against an httptest upstream running fn.
// Every upstream call is counted.
func newTestProxy(t *testing.T, apiKey string, fn http.HandlerFunc) *testProxy {
	t.Helper()

	tp := &testProxy{calls: new(atomic.Int32)}
	tp.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tp.calls.Add(1)
		tp.lastReq.Store(r.Clone(r.Context()))
		fn(w, r)
	}))
	t.Cleanup(tp.upstream.Close)

	tp.cfg = &config.Config{
		CoinMarketCap: config.CoinMarketCapConfig{APIKey: apiKey},
		Upstream: config.UpstreamConfig{
			BaseURL:         tp.upstream.URL + "/v1",
			TimeoutSeconds:  10,
			IdleConnections: 10,
			MaxBodyBytes:    1 << 20,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	base, err := url.Parse(tp.cfg.Upstream.BaseURL)
	if err != nil {
		t.Fatal(err)
	}
	logger := discardLogger()
	m := metrics.New()
	cmc, err := client.New(tp.cfg, logger, m, client.WithBaseURL(base))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	svc := service.NewQuoteService(cmc, service.StaticCredential(apiKey), nil, m, logger)

	tp.e = echo.New()
	tp.e.HTTPErrorHandler = ErrorHandler(logger)
	tp.e.Use(echomw.Recover())
	tp.e.Use(middleware.CORS())
	tp.e.Use(middleware.SecurityHeaders())
	RegisterRoutes(tp.e, NewQuoteHandler(svc), NewHealthHandler(tp.cfg, svc, "test"), tp.cfg, m)

	return tp
}

func (tp *testProxy) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	tp.e.ServeHTTP(rec, req)
	return rec
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	for k, v := range wantCORS {
		if got := h.Values(k); len(got) != 1 || got[0] != v {
			t.Errorf("%s = %q, want exactly %q", k, got, v)
		}
	}
}

// assertJSONBody compares the response body to want as JSON values.
func assertJSONBody(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var got, exp any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal body %q: %v", rec.Body.String(), err)
	}
	if err := json.Unmarshal([]byte(want), &exp); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	gb, _ := json.Marshal(got)
	eb, _ := json.Marshal(exp)
	if string(gb) != string(eb) {
		t.Errorf("body = %s, want %s", rec.Body.String(), want)
	}
}
