package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider throttles a Provider to rpm requests per minute with a
// continuously refilling bucket. Research rounds can fan out several planner
// calls; this keeps them under provider quotas.
type RateLimitedProvider struct {
	provider Provider
	capacity float64

	mu    sync.Mutex
	level float64
	last  time.Time
}

// NewRateLimitedProvider wraps provider so at most rpm requests per minute
// go through. The bucket starts full, so a burst up to rpm passes before any
// waiting happens.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider: provider,
		capacity: float64(rpm),
		level:    float64(rpm),
		last:     time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// acquire takes one token, sleeping exactly until the next token accrues
// instead of polling.
func (r *RateLimitedProvider) acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.level += now.Sub(r.last).Minutes() * r.capacity
		if r.level > r.capacity {
			r.level = r.capacity
		}
		r.last = now

		if r.level >= 1 {
			r.level--
			r.mu.Unlock()
			return nil
		}
		deficit := 1 - r.level
		r.mu.Unlock()

		wait := time.Duration(deficit / r.capacity * float64(time.Minute))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
