package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/metrics"

	"golang.org/x/time/rate"
)

// ipLimiter holds a token bucket limiter per IP along with the last time it was seen.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces per-IP token bucket rate limiting. Stale entries are
// purged by Run.
type RateLimiter struct {
	rate    rate.Limit
	burst   int
	mu      sync.Mutex
	clients map[string]*ipLimiter
}

func NewRateLimiter(r float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:    rate.Limit(r),
		burst:   burst,
		clients: make(map[string]*ipLimiter),
	}
}

// getLimiter returns the token bucket limiter for a given IP, creating one if needed.
func (l *RateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.clients[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Purge forgets IPs not seen for longer than idle.
func (l *RateLimiter) Purge(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for ip, entry := range l.clients {
		if time.Since(entry.lastSeen) > idle {
			delete(l.clients, ip)
			n++
		}
	}
	return n
}

// Run purges stale IPs every 5 minutes until done is closed.
func (l *RateLimiter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := l.Purge(10 * time.Minute); n > 0 {
				logger.Debug("Rate limiter: stale IP entries purged", "count", n)
			}
		}
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := clientIP(r)
		if !l.getLimiter(host).Allow() {
			logger.Warn("Rate limit exceeded", "remote_addr", host,
				"rate", float64(l.rate), "burst", l.burst)
			metrics.RejectedRequests.WithLabelValues("rate_limit").Inc()
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
