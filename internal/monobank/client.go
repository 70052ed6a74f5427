// Package monobank is a thin client for the Monobank personal API.
// It performs exactly one HTTP exchange per call; rate limiting and
// argument validation live in the gateway above it.
package monobank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nklymok/monobank-mcp/internal/model"
)

const defaultBaseURL = "https://api.monobank.ua"

// Client calls the Monobank personal API with a pre-loaded token.
// The token is injected at construction and never read from the
// environment here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(url, "/"),
		token:      token,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// GetClientInfo fetches the client snapshot: identity, accounts and jars.
func (c *Client) GetClientInfo(ctx context.Context) (*model.ClientInfoResult, error) {
	var info model.ClientInfoResult
	if err := c.get(ctx, "/personal/client-info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetStatement fetches transactions for one account over an inclusive
// epoch-second range. Items come back in upstream order, newest first.
func (c *Client) GetStatement(ctx context.Context, accountID string, from, to int64) ([]model.StatementItem, error) {
	path := fmt.Sprintf("/personal/statement/%s/%d/%d", accountID, from, to)
	var items []model.StatementItem
	if err := c.get(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &APIError{Timeout: true}
		}
		return &APIError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if apiErr.RateLimited() {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return apiErr
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
