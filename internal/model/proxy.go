// Package model defines shared types for the proxy.
package model

import (
	"encoding/json"
	"net/http"
)

// UpstreamResponse is a fully-read CoinMarketCap response.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r *UpstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Result is what a translator hands back to the router: a status code and a
// JSON-serializable payload.
type Result struct {
	StatusCode int
	Payload    any
}

// ErrorResponse is the normalized error envelope. Only Error is always set.
type ErrorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Passthrough wraps a verified upstream JSON body as a 200 result.
func Passthrough(body json.RawMessage) *Result {
	return &Result{StatusCode: http.StatusOK, Payload: body}
}

// Failure builds an error result with the given status and envelope.
func Failure(status int, env ErrorResponse) *Result {
	return &Result{StatusCode: status, Payload: env}
}
