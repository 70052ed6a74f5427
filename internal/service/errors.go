package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/nklymok/monobank-mcp/internal/monobank"
)

// ValidationError rejects malformed tool arguments before any network
// traffic. The caller can recover by correcting the arguments.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RateLimitError is a local admission denial. RetryAfter tells the
// caller how long to wait before the window reopens.
type RateLimitError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: retry in %ds", e.Tool, e.RetryAfterSeconds())
}

func (e *RateLimitError) RetryAfterSeconds() int {
	return int(e.RetryAfter / time.Second)
}

// UpstreamError is a failed exchange with the banking API: non-200
// status, transport failure or timeout. It is never retried here.
type UpstreamError struct {
	StatusCode int
	Body       string
	Timeout    bool
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return "upstream request timed out"
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream request failed: %s", e.Body)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// upstreamError maps a client failure into the gateway's error model.
func upstreamError(err error) *UpstreamError {
	var apiErr *monobank.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Body,
			Timeout:    apiErr.Timeout,
			RetryAfter: apiErr.RetryAfter,
		}
	}
	return &UpstreamError{Body: err.Error()}
}
