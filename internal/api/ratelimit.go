package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedClients caps the limiter map so rotating client addresses
	// cannot grow it without bound.
	maxTrackedClients = 4096

	// clientIdleTTL is how long an unused limiter is kept.
	clientIdleTTL = 3 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client token bucket. Safe for concurrent use.
type RateLimiter struct {
	mu                sync.Mutex
	clients           map[string]*clientLimiter
	limit             rate.Limit
	burst             int
	requestsPerMinute int
}

// NewRateLimiter allows requestsPerMinute per client with the given burst.
// A non-positive rate disables limiting.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	l := &RateLimiter{
		clients:           make(map[string]*clientLimiter),
		burst:             max(burst, 1),
		requestsPerMinute: requestsPerMinute,
	}
	if requestsPerMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return l
}

// Allow reports whether a request from key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	if l.requestsPerMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.clients) >= maxTrackedClients {
		l.prune(now)
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *RateLimiter) prune(now time.Time) {
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) >= clientIdleTTL {
			delete(l.clients, k)
		}
	}
	// Hard eviction if still at cap
	for len(l.clients) >= maxTrackedClients {
		for k := range l.clients {
			delete(l.clients, k)
			break
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, CodeRateLimited,
				fmt.Sprintf("Too many requests. Limit is %d per minute.", l.requestsPerMinute))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
