package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/metrics"
	"github.com/jjtg/htmx-demo/store"
)

// ConnLimit caps the number of requests a single IP may have in flight.
// Counters live in s so that several instances sharing a Redis store share
// the cap. Store errors let the request through.
type ConnLimit struct {
	Store store.Storer
	Max   int64
	// TTL bounds how long a counter survives if a release is lost.
	TTL time.Duration
}

func NewConnLimit(s store.Storer, max int) *ConnLimit {
	return &ConnLimit{Store: s, Max: int64(max), TTL: 5 * time.Minute}
}

func (c *ConnLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := clientIP(r)
		key := "conn:" + host

		n, err := c.Store.Increment(r.Context(), key, c.TTL)
		if err != nil {
			logger.Warn("Connection limit check failed", "remote_addr", host, "err", err)
			next.ServeHTTP(w, r)
			return
		}
		defer func() {
			// Release even if the client went away.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), time.Second)
			defer cancel()
			if _, err := c.Store.Decrement(ctx, key); err != nil {
				logger.Warn("Connection release failed", "remote_addr", host, "err", err)
			}
		}()

		if n > c.Max {
			logger.Warn("Too many concurrent requests", "remote_addr", host, "count", n)
			metrics.RejectedRequests.WithLabelValues("conn_limit").Inc()
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}
