package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateBudget enforces the daily call quota for the primary equity provider.
// Crypto and fallback-provider calls are not counted. The counter lives in
// process memory only; a restart silently resets the budget.
type RateBudget struct {
	limit int
	now   func() time.Time

	mu    sync.Mutex
	calls int
	day   string // UTC date of last reset, 2006-01-02

	logger *logrus.Entry
}

// NewRateBudget creates a budget with the given daily limit.
func NewRateBudget(limit int, logger *logrus.Logger) *RateBudget {
	return &RateBudget{
		limit:  limit,
		now:    time.Now,
		logger: logger.WithField("component", "rate-budget"),
	}
}

// SetNowFunc overrides the clock, used by tests.
func (b *RateBudget) SetNowFunc(now func() time.Time) {
	b.now = now
}

// Allow reports whether another primary-provider call fits in today's quota.
// It rolls the counter over exactly once when the UTC day advances.
func (b *RateBudget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	today := b.now().UTC().Format("2006-01-02")
	if today != b.day {
		b.day = today
		b.calls = 0
	}

	return b.calls < b.limit
}

// Record consumes one unit of quota. Callers must check Allow first and call
// Record only after a request actually reached the primary provider.
func (b *RateBudget) Record() {
	b.mu.Lock()
	b.calls++
	calls := b.calls
	b.mu.Unlock()

	if calls == b.limit {
		b.logger.WithField("limit", b.limit).Warn("Daily primary provider quota exhausted")
	}
}

// Remaining returns the unused quota for today.
func (b *RateBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - b.calls
	if remaining < 0 {
		return 0
	}
	return remaining
}
