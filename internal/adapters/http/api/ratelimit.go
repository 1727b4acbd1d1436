package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/squadmarket/pkg/metrics"
)

const (
	defaultVisitorTTL = 10 * time.Minute
	pruneEvery        = 1024
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per authenticated principal.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
	calls    int
	clockNow func() time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per
// principal. A non-positive rps returns nil, which disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      defaultVisitorTTL,
		visitors: make(map[string]*visitor),
		clockNow: time.Now,
	}
}

// Middleware answers 429 once the caller's bucket is empty. It must run
// after authentication.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := PrincipalFrom(r.Context())
		if err := l.Allow(id); err != nil {
			metrics.RecordRateLimited()
			writeMessage(w, statusFor(err), MsgTooManyCalls)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow returns ErrRateLimited when id may not make a request now.
func (l *RateLimiter) Allow(id string) error {
	now := l.clockNow()

	l.mu.Lock()
	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	l.calls++
	if l.calls%pruneEvery == 0 {
		l.prune(now)
	}
	l.mu.Unlock()

	if !v.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}
	return nil
}

// prune drops idle visitors. Callers hold l.mu.
func (l *RateLimiter) prune(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, id)
		}
	}
}
