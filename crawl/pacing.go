// Package crawl discovers, joins and backfills conversations.
package crawl

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the SleepFunc used outside of tests.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer draws the randomized delay that separates two join actions and
// turns provider throttling into a wait.
type Pacer struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer creates a pacer drawing uniformly from [min, max].
func NewPacer(min, max time.Duration, seed int64) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{Min: min, Max: max, rng: rand.New(rand.NewSource(seed))}
}

// Next returns the delay to apply after a join attempt.
func (p *Pacer) Next() time.Duration {
	span := int64(p.Max - p.Min)
	if span <= 0 {
		return p.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Min + time.Duration(p.rng.Int63n(span+1))
}

// Throttled returns the wait for a throttling signal carrying wait: twice
// the provider's wait, and never less than the pacing minimum.
func (p *Pacer) Throttled(wait time.Duration) time.Duration {
	d := ThrottleBackoff(wait)
	if d < p.Min {
		return p.Min
	}
	return d
}

// ThrottleBackoff doubles a provider-specified wait.
func ThrottleBackoff(wait time.Duration) time.Duration {
	return 2 * wait
}
