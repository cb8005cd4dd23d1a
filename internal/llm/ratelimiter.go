package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider spaces calls to the wrapped provider with a token
// bucket holding at most one minute's worth of requests.
type RateLimitedProvider struct {
	provider Provider
	perToken time.Duration
	burst    float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimitedProvider allows at most rpm calls per minute through to
// provider.
func NewRateLimitedProvider(provider Provider, rpm int) *RateLimitedProvider {
	if rpm <= 0 {
		rpm = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		perToken: time.Minute / time.Duration(rpm),
		burst:    float64(rpm),
		tokens:   float64(rpm),
		now:      time.Now,
		last:     time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string { return r.provider.Name() }

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	for {
		wait := r.take()
		if wait == 0 {
			return r.provider.Complete(ctx, req)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token, or returns how long until one is available.
func (r *RateLimitedProvider) take() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.tokens += float64(now.Sub(r.last)) / float64(r.perToken)
	r.tokens = min(r.tokens, r.burst)
	r.last = now

	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	return time.Duration((1 - r.tokens) * float64(r.perToken))
}
