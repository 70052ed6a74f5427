package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nklymok/monobank-mcp/internal/limiter"
	"github.com/nklymok/monobank-mcp/internal/monobank"
	"github.com/nklymok/monobank-mcp/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockRecorder struct {
	mu          sync.Mutex
	invocations []repository.Invocation
}

func (m *mockRecorder) Record(_ context.Context, inv repository.Invocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocations = append(m.invocations, inv)
	return nil
}

func (m *mockRecorder) last(t *testing.T) repository.Invocation {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.invocations)
	return m.invocations[len(m.invocations)-1]
}

// newTestGateway wires a gateway against a mocked upstream and returns
// the pieces the tests poke at.
func newTestGateway(t *testing.T, upstream http.HandlerFunc) (*Gateway, *fakeClock, *mockRecorder, *int64) {
	t.Helper()

	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	clock := newFakeClock()
	recorder := &mockRecorder{}
	client := monobank.NewClient(srv.URL, "test-token", 5*time.Second)
	lim := limiter.NewMemoryLimiter(limiter.DefaultWindow, clock)
	gw := NewGateway(client, lim, clock, recorder)
	return gw, clock, recorder, &requests
}

const clientInfoBody = `{
	"clientId": "abc123",
	"name": "Test User",
	"permissions": "psfj",
	"accounts": [
		{"id": "acct-1", "balance": 250000, "creditLimit": 0, "type": "black", "currencyCode": 980},
		{"id": "acct-2", "balance": 31337, "creditLimit": 500000, "type": "white", "currencyCode": 840}
	],
	"jars": [
		{"id": "jar-1", "title": "Rainy day", "currencyCode": 980, "balance": 420000, "goal": 1000000}
	]
}`

func TestGateway_GetClientInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips the upstream snapshot", func(t *testing.T) {
		gw, _, recorder, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(clientInfoBody))
		})

		info, err := gw.GetClientInfo(ctx)
		require.NoError(t, err)

		assert.Equal(t, "abc123", info.ClientID)
		assert.Equal(t, "Test User", info.Name)
		require.Len(t, info.Accounts, 2)
		assert.Equal(t, "acct-1", info.Accounts[0].ID)
		assert.Equal(t, int64(250000), info.Accounts[0].Balance)
		assert.Equal(t, 840, info.Accounts[1].CurrencyCode)
		require.Len(t, info.Jars, 1)
		assert.Equal(t, "Rainy day", info.Jars[0].Title)

		inv := recorder.last(t)
		assert.Equal(t, ToolClientInfo, inv.Tool)
		assert.Equal(t, repository.OutcomeOK, inv.Outcome)
		assert.NotEmpty(t, inv.ID)
	})

	t.Run("second call within the window is rate limited", func(t *testing.T) {
		gw, clock, recorder, requests := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(clientInfoBody))
		})

		_, err := gw.GetClientInfo(ctx)
		require.NoError(t, err)

		clock.Advance(20 * time.Second)
		_, err = gw.GetClientInfo(ctx)
		var rlErr *RateLimitError
		require.ErrorAs(t, err, &rlErr)
		assert.Equal(t, 40, rlErr.RetryAfterSeconds())
		assert.Equal(t, int64(1), atomic.LoadInt64(requests), "denied call must not hit upstream")
		assert.Equal(t, repository.OutcomeRateLimited, recorder.last(t).Outcome)
	})

	t.Run("upstream failure does not consume the budget", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		gw, _, recorder, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("boom"))
				return
			}
			w.Write([]byte(clientInfoBody))
		})

		_, err := gw.GetClientInfo(ctx)
		var upErr *UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
		assert.Equal(t, "boom", upErr.Body)
		assert.Equal(t, repository.OutcomeUpstreamError, recorder.last(t).Outcome)

		// Immediate retry is admitted: the failed call released its slot.
		fail.Store(false)
		_, err = gw.GetClientInfo(ctx)
		require.NoError(t, err)
	})

	t.Run("429 upstream carries retry-after through", func(t *testing.T) {
		gw, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "17")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := gw.GetClientInfo(ctx)
		var upErr *UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, http.StatusTooManyRequests, upErr.StatusCode)
		assert.Equal(t, 17*time.Second, upErr.RetryAfter)
	})

	t.Run("concurrent calls admit exactly one", func(t *testing.T) {
		release := make(chan struct{})
		gw, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.Write([]byte(clientInfoBody))
		})

		type outcome struct {
			err error
		}
		results := make(chan outcome, 2)
		var started sync.WaitGroup
		started.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				started.Done()
				started.Wait()
				_, err := gw.GetClientInfo(ctx)
				results <- outcome{err: err}
			}()
		}

		// Let both goroutines pass admission before the upstream responds.
		time.Sleep(100 * time.Millisecond)
		close(release)

		var okCount, limitedCount int
		for i := 0; i < 2; i++ {
			res := <-results
			if res.err == nil {
				okCount++
				continue
			}
			var rlErr *RateLimitError
			require.ErrorAs(t, res.err, &rlErr)
			limitedCount++
		}
		assert.Equal(t, 1, okCount)
		assert.Equal(t, 1, limitedCount)
	})
}

const statementBody = `[
	{"id": "t3", "time": 1700086400, "description": "Coffee", "mcc": 5814, "amount": -4550, "operationAmount": -4550, "balance": 995450, "currencyCode": 980, "counterEdrpou": "12345678", "counterIban": "UA12345", "invoiceId": "inv-1"},
	{"id": "t2", "time": 1700043200, "description": "Groceries", "mcc": 5411, "amount": -125000, "operationAmount": -125000, "balance": 1000000, "currencyCode": 980},
	{"id": "t1", "time": 1700000000, "description": "Salary", "mcc": 0, "amount": 5000000, "operationAmount": 5000000, "balance": 1125000, "currencyCode": 980, "comment": "October"}
]`

func TestGateway_GetStatement(t *testing.T) {
	ctx := context.Background()

	t.Run("returns transactions in upstream order", func(t *testing.T) {
		gw, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/personal/statement/acct-1/1700000000/1700086400", r.URL.Path)
			w.Write([]byte(statementBody))
		})

		result, err := gw.GetStatement(ctx, "acct-1", 1700000000, 1700086400)
		require.NoError(t, err)

		require.Len(t, result.Transactions, 3)
		assert.Equal(t, "t3", result.Transactions[0].ID)
		assert.Equal(t, "t2", result.Transactions[1].ID)
		assert.Equal(t, "t1", result.Transactions[2].ID)
	})

	t.Run("formats amounts and times", func(t *testing.T) {
		gw, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(statementBody))
		})

		result, err := gw.GetStatement(ctx, "acct-1", 1700000000, 1700086400)
		require.NoError(t, err)

		coffee := result.Transactions[0]
		assert.Equal(t, "-45.5", coffee.Amount.String())
		assert.Equal(t, "9954.5", coffee.Balance.String())
		assert.Equal(t, "2023-11-15T22:13:20Z", coffee.Time)

		salary := result.Transactions[2]
		assert.Equal(t, "50000", salary.Amount.String())
		assert.Equal(t, "October", salary.Comment)
	})

	t.Run("rejects empty account id without network call", func(t *testing.T) {
		gw, _, recorder, requests := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {})

		_, err := gw.GetStatement(ctx, "", 1700000000, 1700086400)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Equal(t, "account_id", valErr.Field)
		assert.Equal(t, int64(0), atomic.LoadInt64(requests))
		assert.Equal(t, repository.OutcomeValidationError, recorder.last(t).Outcome)
	})

	t.Run("rejects inverted range without network call", func(t *testing.T) {
		gw, _, _, requests := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {})

		_, err := gw.GetStatement(ctx, "acct-1", 1700086400, 1700000000)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Equal(t, int64(0), atomic.LoadInt64(requests))
	})

	t.Run("rejects span over 31 days without network call", func(t *testing.T) {
		gw, _, _, requests := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {})

		_, err := gw.GetStatement(ctx, "acct-1", 1700000000, 1700000000+2_678_401)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Contains(t, valErr.Reason, "range too large")
		assert.Equal(t, int64(0), atomic.LoadInt64(requests))
	})

	t.Run("accepts a span of exactly 31 days", func(t *testing.T) {
		gw, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		})

		result, err := gw.GetStatement(ctx, "acct-1", 1700000000, 1700000000+2_678_400)
		require.NoError(t, err)
		assert.Empty(t, result.Transactions)
	})

	t.Run("validation failure does not consume the rate budget", func(t *testing.T) {
		gw, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		})

		_, err := gw.GetStatement(ctx, "", 1, 2)
		require.Error(t, err)

		_, err = gw.GetStatement(ctx, "acct-1", 1, 2)
		require.NoError(t, err)
	})

	t.Run("statement and client-info windows are independent", func(t *testing.T) {
		gw, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/personal/client-info" {
				w.Write([]byte(clientInfoBody))
				return
			}
			w.Write([]byte(`[]`))
		})

		_, err := gw.GetStatement(ctx, "acct-1", 1, 2)
		require.NoError(t, err)

		_, err = gw.GetClientInfo(ctx)
		require.NoError(t, err, "statement call must not consume the client-info window")
	})
}
