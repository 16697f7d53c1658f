// Package service implements the CoinMarketCap request translators.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"cmc-proxy/internal/cache"
	"cmc-proxy/internal/metrics"
	"cmc-proxy/internal/model"
)

// Upstream resources, relative to upstream.base_url.
const (
	ResourceLatestQuotes     = "cryptocurrency/quotes/latest"
	ResourceHistoricalQuotes = "cryptocurrency/quotes/historical"
	ResourceMap              = "cryptocurrency/map"
)

const defaultInterval = "daily"

// SetupHint accompanies the "API key not configured" error.
const SetupHint = "Set COINMARKETCAP_API_KEY in the environment or a .env file, pass --api-key, or set coinmarketcap.api_key in the config file."

// Upstream issues one authenticated GET against CoinMarketCap.
//
//go:generate mockgen -package=service_test -destination=mock_upstream_test.go -source=quotes.go
type Upstream interface {
	Get(ctx context.Context, resource string, query url.Values, apiKey string) (*model.UpstreamResponse, error)
}

// CredentialSource supplies the upstream API key. It is consulted once per
// translator call and never derived from the inbound request.
type CredentialSource interface {
	APIKey() string
}

// StaticCredential is a key fixed for the process lifetime.
type StaticCredential string

// APIKey implements CredentialSource.
func (s StaticCredential) APIKey() string { return string(s) }

// QuoteService validates inbound parameters, calls CoinMarketCap and
// normalizes the outcome. Expected failures (missing parameters, missing key,
// upstream non-2xx) are returned as results; only unexpected failures are
// returned as errors.
type QuoteService struct {
	upstream Upstream
	creds    CredentialSource
	cache    *cache.Cache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewQuoteService creates a QuoteService. The cache and metrics are optional.
func NewQuoteService(up Upstream, creds CredentialSource, c *cache.Cache, m *metrics.Metrics, logger *slog.Logger) *QuoteService {
	return &QuoteService{
		upstream: up,
		creds:    creds,
		cache:    c,
		metrics:  m,
		logger:   logger.With("component", "quote_service"),
	}
}

// CacheEnabled reports whether successful responses are cached.
func (s *QuoteService) CacheEnabled() bool {
	return s.cache != nil
}

// KeyConfigured reports whether a credential is currently available.
func (s *QuoteService) KeyConfigured() bool {
	return s.creds.APIKey() != ""
}

// LatestQuotes relays cryptocurrency/quotes/latest for a symbol or id list.
// When both are given only id is forwarded.
func (s *QuoteService) LatestQuotes(ctx context.Context, q url.Values) (*model.Result, error) {
	symbol, id := q.Get("symbol"), q.Get("id")
	if symbol == "" && id == "" {
		return missingParam("symbol or id"), nil
	}

	params := url.Values{}
	if id != "" {
		params.Set("id", id)
	} else {
		params.Set("symbol", symbol)
	}
	return s.forward(ctx, ResourceLatestQuotes, params)
}

// HistoricalQuotes relays cryptocurrency/quotes/historical. The time bounds
// are optional and interval defaults to daily.
func (s *QuoteService) HistoricalQuotes(ctx context.Context, q url.Values) (*model.Result, error) {
	id := q.Get("id")
	if id == "" {
		return missingParam("id"), nil
	}

	interval := q.Get("interval")
	if interval == "" {
		interval = defaultInterval
	}

	params := url.Values{}
	params.Set("id", id)
	if v := q.Get("time_start"); v != "" {
		params.Set("time_start", v)
	}
	if v := q.Get("time_end"); v != "" {
		params.Set("time_end", v)
	}
	params.Set("interval", interval)
	return s.forward(ctx, ResourceHistoricalQuotes, params)
}

// SymbolMap relays cryptocurrency/map for a symbol list.
func (s *QuoteService) SymbolMap(ctx context.Context, q url.Values) (*model.Result, error) {
	symbol := q.Get("symbol")
	if symbol == "" {
		return missingParam("symbol"), nil
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	return s.forward(ctx, ResourceMap, params)
}

func (s *QuoteService) forward(ctx context.Context, resource string, params url.Values) (*model.Result, error) {
	apiKey := s.creds.APIKey()
	if apiKey == "" {
		s.logger.Warn("api key not configured", "resource", resource)
		return model.Failure(http.StatusInternalServerError, model.ErrorResponse{
			Error: "API key not configured",
			Hint:  SetupHint,
		}), nil
	}

	s.logger.Debug("forwarding request", "resource", resource)

	resp, err := s.fetch(ctx, resource, params, apiKey)
	if err != nil {
		return nil, fmt.Errorf("forward %s: %w", resource, err)
	}

	if !resp.OK() {
		msg := upstreamErrorMessage(resp.Body)
		s.logger.Warn("upstream error",
			"resource", resource,
			"status", resp.StatusCode,
			"message", msg,
		)
		return model.Failure(resp.StatusCode, model.ErrorResponse{
			Error:   "CoinMarketCap API error",
			Status:  resp.StatusCode,
			Message: msg,
		}), nil
	}

	var body json.RawMessage
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", resource, err)
	}
	return model.Passthrough(body), nil
}

func (s *QuoteService) fetch(ctx context.Context, resource string, params url.Values, apiKey string) (*model.UpstreamResponse, error) {
	if s.cache == nil {
		return s.upstream.Get(ctx, resource, params, apiKey)
	}

	// Encode sorts keys, so symbol and id lookups never share a key.
	key := resource + "?" + params.Encode()
	resp, hit, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (*model.UpstreamResponse, error) {
		return s.upstream.Get(ctx, resource, params, apiKey)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
	return resp, nil
}

func missingParam(name string) *model.Result {
	return model.Failure(http.StatusBadRequest, model.ErrorResponse{
		Error: "Missing required parameter: " + name,
	})
}

// upstreamErrorMessage reads status.error_message from an error body, falling
// back to "Unknown error" when the body or field is absent or malformed.
func upstreamErrorMessage(body []byte) string {
	var env struct {
		Status struct {
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Status.ErrorMessage == "" {
		return "Unknown error"
	}
	return env.Status.ErrorMessage
}
