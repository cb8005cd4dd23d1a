// Package quota tracks daily generation allowances per client. Days are UTC
// calendar days; every allowance resets at the next UTC midnight.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExceeded is returned by Consume once a client has used its daily
// allowance.
var ErrExceeded = errors.New("daily limit exceeded")

// DefaultDailyLimit is the allowance used when none is configured.
const DefaultDailyLimit = 10

// Store persists per-client, per-day usage counters.
type Store interface {
	// Incr adds one to the counter for client on day and returns the new
	// count. expires is when the counter may be dropped.
	Incr(ctx context.Context, client, day string, expires time.Time) (int, error)
	// Count returns the counter for client on day, zero if absent.
	Count(ctx context.Context, client, day string) (int, error)
	Close() error
}

// Status is a client's allowance for the current day.
type Status struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"resetAt"`
}

// Limiter applies a daily limit on top of a Store.
type Limiter struct {
	store Store
	limit int
	now   func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter returns a limiter allowing limit uses per client per day.
func NewLimiter(store Store, limit int, opts ...LimiterOption) *Limiter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	l := &Limiter{store: store, limit: limit, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Limit returns the configured daily allowance.
func (l *Limiter) Limit() int { return l.limit }

// Status reports client's remaining allowance without consuming any.
func (l *Limiter) Status(ctx context.Context, client string) (Status, error) {
	now := l.now().UTC()
	n, err := l.store.Count(ctx, client, Day(now))
	if err != nil {
		return Status{}, fmt.Errorf("reading usage: %w", err)
	}
	return l.status(n, now), nil
}

// Consume uses one unit of client's allowance. When the allowance is
// already spent it returns ErrExceeded along with the exhausted status.
func (l *Limiter) Consume(ctx context.Context, client string) (Status, error) {
	now := l.now().UTC()
	reset := NextReset(now)
	n, err := l.store.Incr(ctx, client, Day(now), reset)
	if err != nil {
		return Status{}, fmt.Errorf("recording usage: %w", err)
	}
	st := l.status(n, now)
	if n > l.limit {
		return st, ErrExceeded
	}
	return st, nil
}

func (l *Limiter) status(used int, now time.Time) Status {
	return Status{
		Remaining: max(l.limit-used, 0),
		Limit:     l.limit,
		ResetAt:   NextReset(now),
	}
}

// Day formats t's UTC calendar day as a counter key.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextReset returns the UTC midnight following t.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
