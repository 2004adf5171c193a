package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Provider names as the manager would key limiters, not placeholders.
var providerNames = gen.OneConstOf("openai-primary", "anthropic-fallback", "ollama-local", "vllm-batch")

func TestSemaphore_NeverDeadlocksUnderConcurrentLoad(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("balanced acquire/release always completes", prop.ForAll(
		func(workers int) bool {
			sem := NewSemaphore(2)
			done := make(chan struct{})
			var wg sync.WaitGroup

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := sem.Acquire(context.Background()); err != nil {
						return
					}
					sem.Release()
				}()
			}
			go func() { wg.Wait(); close(done) }()

			select {
			case <-done:
				return true
			case <-time.After(2 * time.Second):
				return false
			}
		},
		gen.IntRange(1, 40),
	))

	properties.Property("capacity bound holds for any capacity and worker count", prop.ForAll(
		func(capacity, workers int) bool {
			sem := NewSemaphore(capacity)
			var inFlight, peak atomic.Int64
			var wg sync.WaitGroup

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := sem.Acquire(context.Background()); err != nil {
						return
					}
					defer sem.Release()
					n := inFlight.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					inFlight.Add(-1)
				}()
			}
			wg.Wait()
			return peak.Load() <= int64(capacity)
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

func TestTokenBucket_NeverDeadlocksAcrossProviders(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent acquires over arbitrary providers all return", prop.ForAll(
		func(names []string) bool {
			// Generous rate so the test exercises the lock paths rather
			// than real waiting.
			tb := NewTokenBucket(6000, 0)
			done := make(chan struct{})
			var wg sync.WaitGroup

			for _, name := range names {
				wg.Add(1)
				go func(provider string) {
					defer wg.Done()
					ctx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = tb.Acquire(ctx, provider)
				}(name)
			}
			go func() { wg.Wait(); close(done) }()

			select {
			case <-done:
				return true
			case <-time.After(3 * time.Second):
				return false
			}
		},
		gen.SliceOf(providerNames),
	))

	properties.Property("one limiter instance per provider regardless of interleaving", prop.ForAll(
		func(names []string) bool {
			tb := NewTokenBucket(60, 1)
			var wg sync.WaitGroup
			for _, name := range names {
				wg.Add(1)
				go func(provider string) {
					defer wg.Done()
					tb.getLimiter(provider)
				}(name)
			}
			wg.Wait()

			seen := make(map[string]bool)
			for _, name := range names {
				seen[name] = true
			}
			tb.mutex.RLock()
			defer tb.mutex.RUnlock()
			return len(tb.limiters) == len(seen)
		},
		gen.SliceOf(providerNames),
	))

	properties.TestingRun(t)
}
