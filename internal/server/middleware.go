package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per connection. The defaults are sized
// so a client streaming paddle updates at the full tick rate passes
// untouched; only a runaway sender gets throttled.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a connection may send another message right now.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	limiter, ok := r.limiters[connectionID]
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters[connectionID] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}

// RemoveConnection drops the bucket for a closed connection.
func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, connectionID)
}
