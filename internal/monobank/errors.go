package monobank

import (
	"fmt"
	"net/http"
	"time"
)

// APIError is any failed exchange with the Monobank API: a non-200 status,
// a transport failure or a timeout. StatusCode is 0 when no response was
// received.
type APIError struct {
	StatusCode int
	Body       string
	Timeout    bool
	// RetryAfter is populated from the Retry-After header on 429 responses
	// when the server sends one.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Timeout {
		return "monobank: request timed out"
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("monobank: request failed: %s", e.Body)
	}
	return fmt.Sprintf("monobank: unexpected status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the upstream rejected the call with HTTP 429.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
