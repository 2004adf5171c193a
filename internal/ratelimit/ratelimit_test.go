package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_BoundsConcurrentHolders(t *testing.T) {
	sem := NewSemaphore(2)
	require.NotNil(t, sem)

	require.NoError(t, sem.Acquire(context.Background()))
	require.NoError(t, sem.Acquire(context.Background()))

	// Third acquire must block until a ticket frees up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := sem.Acquire(ctx)
	assert.Equal(t, ErrContextCanceled, err)

	sem.Release()
	assert.NoError(t, sem.Acquire(context.Background()))
}

func TestSemaphore_NilIsUnlimited(t *testing.T) {
	sem := NewSemaphore(0)
	assert.Nil(t, sem)

	// A nil semaphore admits everything and tolerates spurious releases.
	for i := 0; i < 100; i++ {
		assert.NoError(t, sem.Acquire(context.Background()))
	}
	sem.Release()
}

func TestSemaphore_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	sem := NewSemaphore(1)
	sem.Release()
	sem.Release()

	// Capacity must still be 1 afterwards, not inflated by the extra releases.
	require.NoError(t, sem.Acquire(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Equal(t, ErrContextCanceled, sem.Acquire(ctx))
}

func TestSemaphore_InFlightNeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	const workers = 20

	sem := NewSemaphore(capacity)
	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
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
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(capacity))
}

func TestNewTokenBucket_DisabledWhenRateNotPositive(t *testing.T) {
	assert.Nil(t, NewTokenBucket(0, 1))
	assert.Nil(t, NewTokenBucket(-60, 1))

	var tb *TokenBucket
	assert.NoError(t, tb.Acquire(context.Background(), "openai-primary"))
}

func TestNewTokenBucket_DefaultBurst(t *testing.T) {
	cases := []struct {
		ratePerMin int
		wantBurst  int
	}{
		{600, 10}, // 600/10 capped at 10
		{5, 1},    // floor of 1
		{100, 10},
	}
	for _, tc := range cases {
		tb := NewTokenBucket(tc.ratePerMin, 0)
		require.NotNil(t, tb)
		assert.Equal(t, tc.wantBurst, tb.burst, "ratePerMin=%d", tc.ratePerMin)
	}
}

func TestTokenBucket_ProvidersAreIndependent(t *testing.T) {
	// Burst 1 at a slow rate: the first acquire per provider is free, the
	// second has to wait for a refill. Exhausting one provider's token must
	// not affect another provider.
	tb := NewTokenBucket(6, 1)

	require.NoError(t, tb.Acquire(context.Background(), "openai-primary"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, tb.Acquire(ctx, "openai-primary"), "second openai-primary token should not be available yet")

	assert.NoError(t, tb.Acquire(context.Background(), "anthropic-fallback"))
}

func TestTokenBucket_AcquireHonorsContextCancel(t *testing.T) {
	tb := NewTokenBucket(6, 1)
	require.NoError(t, tb.Acquire(context.Background(), "ollama-local"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tb.Acquire(ctx, "ollama-local") }()
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after context cancellation")
	}
}

func TestTokenBucket_LimiterIsCachedPerProvider(t *testing.T) {
	tb := NewTokenBucket(60, 1)

	first := tb.getLimiter("vllm-batch")
	second := tb.getLimiter("vllm-batch")
	assert.Same(t, first, second)

	other := tb.getLimiter("openai-primary")
	assert.NotSame(t, first, other)
}
