package webopac

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Pacer enforces the minimum spacing between requests to the remote
// site. One pacer is shared across both acquisition strategies so the
// site never sees sub-interval bursts regardless of which strategy
// issued the request. The mutex serializes waiters, which keeps slot
// grants in arrival order.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

func NewPacer(minInterval time.Duration) *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (p *Pacer) Acquire(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limiter.Wait(ctx)
}

// RetryPolicy wraps a single fetch attempt with bounded exponential
// backoff. Only the transient failure class is retried; everything
// else propagates immediately. The pacer is honored on every attempt,
// retries included.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// RetryRenderTimeouts opts render timeouts into the transient
	// class; the orchestrator enables this for browser fetches only.
	RetryRenderTimeouts bool
}

func (r RetryPolicy) retryable(err error) bool {
	if isTransient(err) {
		return true
	}
	return r.RetryRenderTimeouts && isRenderTimeout(err)
}

// Do runs fn under the policy and reports the number of attempts made
// alongside the final error.
func (r RetryPolicy) Do(ctx context.Context, pacer *Pacer, fn func(ctx context.Context) error) (int, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.BaseDelay
	bo.MaxInterval = r.MaxDelay
	bo.Multiplier = 2

	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		if err := pacer.Acquire(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if r.retryable(err) && attempts < maxAttempts {
			slog.DebugContext(ctx, "retrying after transient failure",
				"attempt", attempts, "err", err)
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))

	return attempts, err
}
