package limiter

import (
	"context"
	"sync"
	"time"
)

type window struct {
	last     time.Time
	reserved bool
}

// MemoryLimiter keeps rate windows in process memory. A single mutex
// serializes check-then-reserve so two concurrent calls for the same
// tool cannot both be admitted within one window.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	clock   Clock
	windows map[string]*window
}

// NewMemoryLimiter builds a limiter over the given window. A nil clock
// falls back to the system clock.
func NewMemoryLimiter(windowSize time.Duration, clock Clock) *MemoryLimiter {
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryLimiter{
		window:  windowSize,
		clock:   clock,
		windows: make(map[string]*window),
	}
}

func (m *MemoryLimiter) CheckAndReserve(_ context.Context, tool string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[tool]
	if !ok {
		w = &window{}
		m.windows[tool] = w
	}

	if w.reserved {
		return Decision{Allowed: false, RetryAfter: m.remaining(w)}, nil
	}

	if !w.last.IsZero() {
		if elapsed := m.clock.Now().Sub(w.last); elapsed < m.window {
			return Decision{Allowed: false, RetryAfter: ceilSeconds(m.window - elapsed)}, nil
		}
	}

	w.reserved = true
	return Decision{Allowed: true}, nil
}

func (m *MemoryLimiter) RecordSuccess(_ context.Context, tool string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[tool]
	if !ok {
		w = &window{}
		m.windows[tool] = w
	}
	w.last = at
	w.reserved = false
	return nil
}

func (m *MemoryLimiter) Release(_ context.Context, tool string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.windows[tool]; ok {
		w.reserved = false
	}
	return nil
}

// remaining reports how long a caller denied because of a held
// reservation should wait. Without a prior success there is no window
// start to measure from, so the full window is the safe answer.
func (m *MemoryLimiter) remaining(w *window) time.Duration {
	if w.last.IsZero() {
		return m.window
	}
	return ceilSeconds(m.window - m.clock.Now().Sub(w.last))
}
