package middleware

import (
	"net"
	"net/http"

	"github.com/jjtg/htmx-demo/store"
)

// ContentSecurityPolicy lets the page load htmx and _hyperscript from unpkg.
// htmx injects its indicator styles inline, hence 'unsafe-inline' for styles.
const ContentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://unpkg.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"frame-ancestors 'none'"

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy", ContentSecurityPolicy)

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of r.RemoteAddr in canonical form.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, err := store.CanonicalIP(host); err == nil {
		return ip
	}
	return host
}
