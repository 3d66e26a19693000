// Package server hosts the demo routes: it owns the listeners, the
// middleware chain and the translation of handler errors into responses.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jjtg/htmx-demo/handler"
	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/manager"
	"github.com/jjtg/htmx-demo/metrics"
	"github.com/jjtg/htmx-demo/middleware"
	"github.com/jjtg/htmx-demo/notifier"
	"github.com/jjtg/htmx-demo/page"
	"github.com/jjtg/htmx-demo/store"
	"github.com/jjtg/htmx-demo/style"
)

// Options configures a Server. The zero value serves the demo with no
// protective middleware and no side listeners.
type Options struct {
	// Addr is the address the demo is served on.
	Addr string
	// MetricsAddr, if set, serves Prometheus metrics at /metrics.
	MetricsAddr string
	// AdminAddr, if set, serves the management API.
	AdminAddr string

	// RateLimit is the per-IP request rate in requests per second. Zero
	// disables rate limiting.
	RateLimit float64
	RateBurst int
	// MaxConnPerIP caps concurrent requests per IP. Zero disables the cap.
	MaxConnPerIP int
	// Blocklist holds addresses and CIDR prefixes that are always refused.
	Blocklist []string

	// Store backs connection counters and runtime blocks. Defaults to a
	// LocalStore.
	Store   store.Storer
	Locator middleware.CountryLocator
	Alerter notifier.Alerter
	// Source drives the data route. Defaults to handler.GlobalSource.
	Source handler.Source
	// Page defaults to page.DefaultConfig().
	Page *page.Config
}

type Server struct {
	opts    Options
	routes  []handler.Route
	handler http.Handler
	limiter *middleware.RateLimiter
	// ownStore is set when the server created its store and must close it.
	ownStore bool
}

// New renders the page and stylesheet and assembles the handler chain.
func New(o Options) (_ *Server, err error) {
	s := &Server{opts: o}
	if s.opts.Store == nil {
		s.opts.Store = store.NewLocalStore()
		s.ownStore = true
		defer func() {
			if err != nil {
				s.opts.Store.Close()
			}
		}()
	}

	pc := page.DefaultConfig()
	if o.Page != nil {
		pc = *o.Page
	}
	body, err := page.Render(pc)
	if err != nil {
		return nil, err
	}

	s.routes = handler.Routes(handler.Deps{
		Page:       body,
		Stylesheet: []byte(style.Generate().String()),
		Data: &handler.Data{
			Source:   o.Source,
			Fragment: page.DataFragment,
			Observe: func(out handler.Outcome) {
				metrics.DataOutcomes.WithLabelValues(out.String()).Inc()
			},
		},
	})

	mux := http.NewServeMux()
	for _, rt := range s.routes {
		mux.Handle(rt.Pattern(), metrics.Instrument(rt.Name, s.adapt(rt)))
	}

	var h http.Handler = mux
	if o.MaxConnPerIP > 0 {
		h = middleware.NewConnLimit(s.opts.Store, o.MaxConnPerIP).Middleware(h)
	}
	if o.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(o.RateLimit, o.RateBurst)
		h = s.limiter.Middleware(h)
	}
	bl, err := middleware.NewBlocklist(o.Blocklist, s.opts.Store)
	if err != nil {
		return nil, err
	}
	h = bl.Middleware(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.Recover(o.Alerter)(h)
	h = middleware.AccessLog(o.Locator)(h)
	s.handler = h

	return s, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// Routes returns the route table in registration order.
func (s *Server) Routes() []handler.Route { return s.routes }

// RouteInfo describes the route table for the management API.
func (s *Server) RouteInfo() []manager.RouteInfo {
	info := make([]manager.RouteInfo, len(s.routes))
	for i, rt := range s.routes {
		info[i] = manager.RouteInfo{Method: rt.Method, Path: rt.Path, Name: rt.Name}
	}
	return info
}

// adapt turns a route into an http.Handler, translating its errors.
func (s *Server) adapt(rt handler.Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := rt.Handler.ServeHTTP(w, r); err != nil {
			s.respondError(w, r, rt, err)
		}
	})
}

// respondError writes the response for a failed route. Unprocessable input
// becomes a 422 whose body is exactly the error message; everything else is
// an opaque 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, rt handler.Route, err error) {
	var he *handler.Error
	if errors.As(err, &he) && he.Kind == handler.UnprocessableInput {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, he.Msg)
		return
	}

	logger.Error("Error serving request", "route", rt.Name, "path", r.URL.Path, "err", err)
	if s.opts.Alerter != nil {
		s.opts.Alerter.Alert(r.Context(), fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err), "critical")
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
