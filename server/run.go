package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/manager"
	"github.com/jjtg/htmx-demo/metrics"
)

// ShutdownTimeout bounds graceful shutdown once the Run context is done.
const ShutdownTimeout = 10 * time.Second

// used in tests
var serveReadyHook func(name string, addr net.Addr)

type listener struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

func newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.L().Handler(), slog.LevelWarn),
	}
}

type endpoint struct {
	name    string
	addr    string
	handler http.Handler
}

func (s *Server) endpoints() []endpoint {
	eps := []endpoint{{name: "app", addr: s.opts.Addr, handler: s.handler}}

	if s.opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		eps = append(eps, endpoint{name: "metrics", addr: s.opts.MetricsAddr, handler: mux})
	}
	if s.opts.AdminAddr != "" {
		mux := http.NewServeMux()
		manager.NewManagementAPI(s.opts.Store, s.RouteInfo()).Register(mux)
		eps = append(eps, endpoint{name: "admin", addr: s.opts.AdminAddr, handler: mux})
	}
	return eps
}

// Run binds every configured listener, serves until ctx is done and then
// shuts all of them down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.opts.Addr == "" {
		return errors.New("server: Addr is empty")
	}
	if s.ownStore {
		defer s.opts.Store.Close()
	}

	var ls []listener
	closeAll := func() {
		for _, l := range ls {
			l.ln.Close()
		}
	}
	// Bind everything before serving so a bad address fails fast.
	for _, ep := range s.endpoints() {
		ln, err := net.Listen("tcp", ep.addr)
		if err != nil {
			closeAll()
			return fmt.Errorf("%s server: failed to listen: %w", ep.name, err)
		}
		ls = append(ls, listener{name: ep.name, srv: newHTTPServer(ep.handler), ln: ln})
	}

	done := make(chan struct{})
	defer close(done)
	if s.limiter != nil {
		go s.limiter.Run(done)
	}

	errCh := make(chan error, len(ls))
	for _, l := range ls {
		logger.Info("Listening", "server", l.name, "addr", l.ln.Addr().String())
		if serveReadyHook != nil {
			serveReadyHook(l.name, l.ln.Addr())
		}
		go func(l listener) {
			if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s server: %w", l.name, err)
			}
		}(l)
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}
	logger.Info("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, l := range ls {
		wg.Add(1)
		go func(l listener) {
			defer wg.Done()
			if err := l.srv.Shutdown(shutdownCtx); err != nil {
				mu.Lock()
				runErr = errors.Join(runErr, fmt.Errorf("%s server: %w", l.name, err))
				mu.Unlock()
			}
		}(l)
	}
	wg.Wait()

	if runErr == nil {
		logger.Info("All servers stopped gracefully")
	}
	return runErr
}
