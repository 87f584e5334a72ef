package llm

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer enforces a minimum spacing between requests, shared process-wide by
// every caller it is injected into. The spacing is 60s divided by the
// requests-per-minute budget, jittered by the given fraction on each wait.
//
// The mutex is held across the sleep so that concurrent callers serialize:
// the spacing guarantee is global, not per-caller.
type Pacer struct {
	mu       sync.Mutex
	minDelay time.Duration
	jitter   float64
	last     time.Time
}

// NewPacer creates a pacer for the given requests-per-minute budget and
// jitter fraction (e.g. 0.2 for ±20%).
func NewPacer(requestsPerMinute, jitter float64) *Pacer {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Pacer{
		minDelay: time.Duration(float64(time.Minute) / requestsPerMinute),
		jitter:   jitter,
	}
}

// Wait blocks until at least the jittered minimum delay has elapsed since
// the previous request, or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	factor := 1.0
	if p.jitter > 0 {
		factor += (rand.Float64()*2 - 1) * p.jitter
	}
	delay := time.Duration(float64(p.minDelay) * factor)
	sleepFor := delay - time.Since(p.last)
	if sleepFor > 0 {
		select {
		case <-time.After(sleepFor):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.last = time.Now()
	return nil
}
