package console

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-session command rate limits. Each session gets
// a token bucket refilling at perSecond with a burst of twice that.
type RateLimiter struct {
	mu       sync.Mutex
	sessions map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing perSecond commands per session.
// perSecond <= 0 disables limiting and returns nil; a nil limiter allows
// everything.
func NewRateLimiter(perSecond float64) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		sessions: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether the session may run another command now. Each call
// consumes one token.
func (r *RateLimiter) Allow(session string) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	lim, ok := r.sessions[session]
	if !ok {
		lim = rate.NewLimiter(r.limit, r.burst)
		r.sessions[session] = lim
	}
	r.mu.Unlock()
	return lim.Allow()
}

// Forget drops a finished session's bucket.
func (r *RateLimiter) Forget(session string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.sessions, session)
	r.mu.Unlock()
}
