// Package ratelimit bounds how hard cmd/saigen leans on an LLM provider: a
// Semaphore caps how many generations may be in flight at once (the batch
// engine's -max-concurrent and the provider manager's overall concurrency
// limit), and a TokenBucket enforces each provider's requests_per_minute
// from providers.yaml independently, keyed by provider name.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrContextCanceled is returned when ctx is canceled while waiting to
// acquire a semaphore ticket or rate-limit token.
var ErrContextCanceled = errors.New("context canceled while waiting for resource")

// Semaphore bounds concurrent generations. A nil *Semaphore is a valid,
// unlimited semaphore so callers can pass maxConcurrent <= 0 to disable
// the limit without branching.
type Semaphore struct {
	tickets chan struct{}
}

// NewSemaphore creates a semaphore admitting at most maxConcurrent
// concurrent holders. maxConcurrent <= 0 returns nil (no limit).
func NewSemaphore(maxConcurrent int) *Semaphore {
	if maxConcurrent <= 0 {
		return nil
	}
	return &Semaphore{tickets: make(chan struct{}, maxConcurrent)}
}

// Acquire blocks until a ticket is available or ctx is done. A nil receiver
// always succeeds immediately.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s == nil {
		return nil
	}
	select {
	case s.tickets <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrContextCanceled
	}
}

// Release returns a ticket. A nil receiver, or a Release with no matching
// Acquire, is a no-op rather than a panic or deadlock.
func (s *Semaphore) Release() {
	if s == nil {
		return
	}
	select {
	case <-s.tickets:
	default:
	}
}

// TokenBucket rate-limits requests per provider using golang.org/x/time/rate,
// converting providers.yaml's requests_per_minute into a per-second limit.
type TokenBucket struct {
	limiters   map[string]*rate.Limiter
	mutex      sync.RWMutex
	ratePerMin int
	limit      rate.Limit
	burst      int
}

// NewTokenBucket creates a token bucket allowing ratePerMin requests per
// minute per provider, with a burst of maxBurst (defaulting to
// min(max(1, ratePerMin/10), 10) when maxBurst <= 0). ratePerMin <= 0
// returns nil (no limit).
func NewTokenBucket(ratePerMin, maxBurst int) *TokenBucket {
	if ratePerMin <= 0 {
		return nil
	}

	rps := rate.Limit(float64(ratePerMin) / 60.0)
	if maxBurst <= 0 {
		maxBurst = min(max(1, ratePerMin/10), 10)
	}

	return &TokenBucket{
		limiters:   make(map[string]*rate.Limiter),
		ratePerMin: ratePerMin,
		limit:      rps,
		burst:      maxBurst,
	}
}

// getLimiter returns (creating if needed) the per-provider limiter.
func (tb *TokenBucket) getLimiter(providerName string) *rate.Limiter {
	if tb == nil {
		return nil
	}

	tb.mutex.RLock()
	limiter, exists := tb.limiters[providerName]
	tb.mutex.RUnlock()
	if exists {
		return limiter
	}

	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	if limiter, exists = tb.limiters[providerName]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(tb.limit, tb.burst)
	tb.limiters[providerName] = limiter
	return limiter
}

// Acquire waits for one token for providerName, or returns ctx's error if
// canceled first. A nil receiver always succeeds immediately.
func (tb *TokenBucket) Acquire(ctx context.Context, providerName string) error {
	if tb == nil {
		return nil
	}

	limiter := tb.getLimiter(providerName)
	if limiter.Allow() {
		return nil
	}
	return limiter.Wait(ctx)
}
