// Package client provides the upstream HTTP client for the CoinMarketCap API.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cmc-proxy/internal/config"
	"cmc-proxy/internal/metrics"
	"cmc-proxy/internal/model"
)

// APIKeyHeader carries the credential upstream. It is written verbatim, not
// canonicalized.
const APIKeyHeader = "X-CMC_PRO_API_KEY"

const userAgent = "cmc-proxy/1.0"

// ErrBodyTooLarge is returned when the upstream body exceeds upstream.max_body_bytes.
var ErrBodyTooLarge = errors.New("upstream response body too large")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=client_test -destination=mock_http_client_test.go -source=coinmarketcap.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoinMarketCapClient sends authenticated GET requests to the CoinMarketCap API.
type CoinMarketCapClient struct {
	baseURL      *url.URL
	httpClient   HTTPClient
	maxBodyBytes int64
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// Option configures a CoinMarketCapClient.
type Option func(*CoinMarketCapClient)

// WithHTTPClient replaces the pooled default transport.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *CoinMarketCapClient) {
		c.httpClient = h
	}
}

// WithBaseURL overrides upstream.base_url. Config validation is bypassed, so
// this is meant for tests pointing at httptest servers.
func WithBaseURL(u *url.URL) Option {
	return func(c *CoinMarketCapClient) {
		c.baseURL = u
	}
}

// New creates a CoinMarketCapClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func New(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*CoinMarketCapClient, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	c := &CoinMarketCapClient{
		baseURL: u,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		maxBodyBytes: cfg.Upstream.MaxBodyBytes,
		logger:       logger.With("component", "cmc_client"),
		metrics:      m,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the upstream root this client targets.
func (c *CoinMarketCapClient) BaseURL() string {
	return c.baseURL.String()
}

// Get issues GET <base>/<resource>?<query> with the credential header attached
// and returns the fully-read response. Non-2xx statuses are not errors; only
// transport and read failures are.
func (c *CoinMarketCapClient) Get(ctx context.Context, resource string, query url.Values, apiKey string) (*model.UpstreamResponse, error) {
	u := c.baseURL.JoinPath(resource)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header[APIKeyHeader] = []string{apiKey}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("upstream request", "resource", resource, "query", u.RawQuery)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe(resource, start, resp)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := c.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func (c *CoinMarketCapClient) readBody(r io.Reader) ([]byte, error) {
	if c.maxBodyBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, c.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

func (c *CoinMarketCapClient) observe(resource string, start time.Time, resp *http.Response) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if resp != nil {
		c.metrics.UpstreamResponses.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()
	}
}
