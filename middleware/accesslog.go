package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jjtg/htmx-demo/logger"

	"github.com/google/uuid"
)

// RequestIDHeader carries the id AccessLog assigns to every request.
const RequestIDHeader = "X-Request-Id"

// CountryLocator resolves a client address to an ISO country code. It is
// satisfied by *geo.Locator.
type CountryLocator interface {
	Country(host string) string
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }

// AccessLog logs one line per request. locator may be nil.
func AccessLog(locator CountryLocator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			host := clientIP(r)
			attrs := []any{
				"id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", sw.bytes,
				"duration", time.Since(start),
				"remote_addr", host,
			}
			if locator != nil {
				if c := locator.Country(host); c != "" {
					attrs = append(attrs, "country", c)
				}
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.L().Log(r.Context(), level, "HTTP request", attrs...)
		})
	}
}
