package services

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between successive calls to a provider.
// Wait blocks until the interval has elapsed since the previous paced call,
// or returns early when the context is cancelled.
type Pacer struct {
	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a pacer with the given minimum interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// SetClock overrides the clock and sleep functions, used by tests.
func (p *Pacer) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	p.now = now
	p.sleep = sleep
}

// Wait blocks until at least the configured interval has passed since the
// last paced call.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	var wait time.Duration
	if !p.last.IsZero() {
		wait = p.interval - p.now().Sub(p.last)
	}
	p.mu.Unlock()

	if wait > 0 {
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()

	return nil
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
