package middleware

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/metrics"
	"github.com/jjtg/htmx-demo/store"
)

// Blocklist rejects clients listed statically in config (addresses or CIDR
// prefixes) or blocked at runtime through the store.
type Blocklist struct {
	prefixes []netip.Prefix
	store    store.Storer
}

// NewBlocklist parses entries. s may be nil.
func NewBlocklist(entries []string, s store.Storer) (*Blocklist, error) {
	b := &Blocklist{store: s}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		var (
			p   netip.Prefix
			err error
		)
		if strings.Contains(e, "/") {
			p, err = netip.ParsePrefix(e)
		} else {
			var a netip.Addr
			a, err = netip.ParseAddr(e)
			p = netip.PrefixFrom(a, a.BitLen())
		}
		if err != nil {
			return nil, fmt.Errorf("blocklist entry %q: %w", e, err)
		}
		b.prefixes = append(b.prefixes, p.Masked())
	}
	return b, nil
}

// IsListed reports whether host matches a static entry.
func (b *Blocklist) IsListed(host string) bool {
	a, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range b.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func (b *Blocklist) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := clientIP(r)

		if b.IsListed(host) {
			metrics.RejectedRequests.WithLabelValues("blocklist").Inc()
			http.Error(w, "Access Denied", http.StatusForbidden)
			return
		}

		if b.store != nil {
			blocked, err := b.store.IsBlocked(r.Context(), host)
			if err != nil {
				logger.Warn("Block check failed", "remote_addr", host, "err", err)
			}
			if blocked {
				metrics.RejectedRequests.WithLabelValues("active_block").Inc()
				http.Error(w, "Access Denied (Active Block)", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
