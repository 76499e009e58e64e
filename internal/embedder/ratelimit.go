package embedder

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute is the default embedding call budget
const DefaultRequestsPerMinute = 1000

// DefaultRateLimitBackoff is the pause after a rate-limit rejection without a Retry-After hint
const DefaultRateLimitBackoff = 10 * time.Second

// RateLimiter is a token bucket shared by every embedding call in the process.
// Tokens refill continuously at rpm/60 per second with a burst of one, so the
// configured rate holds even when many jobs arrive at once.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	rpm     int
}

// NewRateLimiter creates a limiter admitting at most rpm calls per minute
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		rpm:     rpm,
	}
}

// RequestsPerMinute returns the configured rate
func (r *RateLimiter) RequestsPerMinute() int {
	return r.rpm
}

// Wait blocks until a call is admitted, honouring any backoff set by RecordRateLimitError
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed now, consuming a token if so
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}

// RecordRateLimitError pauses admissions after the provider rejected a call.
// A non-positive retryAfter uses DefaultRateLimitBackoff. An earlier deadline never shortens a later one.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultRateLimitBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if at := time.Now().Add(retryAfter); at.After(r.retryAt) {
		r.retryAt = at
	}
}
