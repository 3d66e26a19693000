package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func send(t testing.TB, h http.Handler, remoteAddr string, wantStatus int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, wantStatus, rec.Code)
	return rec
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, logger.Setup(logger.Config{Level: "debug", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = logger.Setup(logger.Config{}) })
	return &buf
}

func TestSecurityHeaders(t *testing.T) {
	rec := send(t, SecurityHeaders(ok), "", http.StatusOK)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://unpkg.com")
}

type alertRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alertRecorder) Alert(_ context.Context, msg, severity string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, severity+": "+msg)
}

func TestRecover(t *testing.T) {
	logs := captureLogs(t)
	alerts := new(alertRecorder)
	h := Recover(alerts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := send(t, h, "", http.StatusInternalServerError)
	assert.Equal(t, "Internal Server Error\n", rec.Body.String())
	assert.Equal(t, []string{"critical: panic in GET /: kaboom"}, alerts.msgs)
	assert.Contains(t, logs.String(), "kaboom")
}

func TestRecoverPassesThrough(t *testing.T) {
	send(t, Recover(nil)(ok), "", http.StatusOK)
}

func TestRecoverAbortHandler(t *testing.T) {
	h := Recover(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

type fixedCountry string

func (c fixedCountry) Country(string) string { return string(c) }

func TestAccessLog(t *testing.T) {
	logs := captureLogs(t)
	h := AccessLog(fixedCountry("GB"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("Could not fetch our data"))
	}))

	rec := send(t, h, "81.2.69.142:1234", http.StatusUnprocessableEntity)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	out := logs.String()
	assert.Contains(t, out, `"msg":"HTTP request"`)
	assert.Contains(t, out, `"status":422`)
	assert.Contains(t, out, `"bytes":24`)
	assert.Contains(t, out, `"country":"GB"`)
	assert.Contains(t, out, `"remote_addr":"81.2.69.142"`)
	assert.Contains(t, out, rec.Header().Get(RequestIDHeader))
}

func TestAccessLogImplicitOK(t *testing.T) {
	logs := captureLogs(t)
	send(t, AccessLog(nil)(ok), "", http.StatusOK)
	assert.Contains(t, logs.String(), `"status":200`)
	assert.NotContains(t, logs.String(), "country")
}

func TestAccessLogRequestID(t *testing.T) {
	captureLogs(t)
	h := AccessLog(nil)(ok)

	const id = "0b6cf0a3-6f5e-4f2c-9d3a-4c1e2a7b8f90"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(0.001, 2)
	h := l.Middleware(ok)

	send(t, h, "10.0.0.1:1", http.StatusOK)
	send(t, h, "10.0.0.1:2", http.StatusOK)
	send(t, h, "10.0.0.1:3", http.StatusTooManyRequests)
	// Buckets are per IP.
	send(t, h, "10.0.0.2:1", http.StatusOK)

	assert.Equal(t, 0, l.Purge(time.Hour))
	assert.Equal(t, 2, l.Purge(-time.Second))
}

func TestConnLimit(t *testing.T) {
	s := store.NewLocalStore()
	defer s.Close()

	release := make(chan struct{})
	entered := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
	})
	h := NewConnLimit(s, 1).Middleware(slow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}()
	<-entered

	send(t, h, "10.0.0.1:2", http.StatusServiceUnavailable)

	close(release)
	<-done

	go func() { <-entered }()
	send(t, h, "10.0.0.1:3", http.StatusOK)
}

type failingStore struct{ store.Storer }

func (failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func (failingStore) IsBlocked(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func TestConnLimitFailsOpen(t *testing.T) {
	captureLogs(t)
	send(t, NewConnLimit(failingStore{}, 1).Middleware(ok), "", http.StatusOK)
}

func TestBlocklist(t *testing.T) {
	s := store.NewLocalStore()
	defer s.Close()
	require.NoError(t, s.Block(context.Background(), "10.0.0.9", time.Hour, "temp"))

	b, err := NewBlocklist([]string{"192.0.2.1", " 198.51.100.0/24 ", "", "2001:db8::/32"}, s)
	require.NoError(t, err)
	h := b.Middleware(ok)

	send(t, h, "192.0.2.1:1", http.StatusForbidden)
	send(t, h, "198.51.100.77:1", http.StatusForbidden)
	send(t, h, "[2001:db8::1]:1", http.StatusForbidden)
	send(t, h, "10.0.0.9:1", http.StatusForbidden)
	send(t, h, "192.0.2.2:1", http.StatusOK)

	assert.True(t, b.IsListed("::ffff:192.0.2.1"))
	assert.False(t, b.IsListed("not-an-ip"))
}

func TestBlocklistMatchesCanonicalAddress(t *testing.T) {
	s := store.NewLocalStore()
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Block(ctx, "10.0.0.9", time.Hour, "temp"))
	require.NoError(t, s.Block(ctx, "2001:db8::5", time.Hour, "temp"))

	b, err := NewBlocklist(nil, s)
	require.NoError(t, err)
	h := b.Middleware(ok)

	send(t, h, "[::ffff:10.0.0.9]:1", http.StatusForbidden)
	send(t, h, "[2001:0db8:0:0::5]:1", http.StatusForbidden)
	send(t, h, "[2001:db8::6]:1", http.StatusOK)
}

func TestBlocklistInvalidEntry(t *testing.T) {
	_, err := NewBlocklist([]string{"300.1.1.1"}, nil)
	assert.Error(t, err)
	_, err = NewBlocklist([]string{"10.0.0.0/99"}, nil)
	assert.Error(t, err)
}

func TestBlocklistStoreError(t *testing.T) {
	captureLogs(t)
	b, err := NewBlocklist(nil, failingStore{})
	require.NoError(t, err)
	send(t, b.Middleware(ok), "", http.StatusOK)
}
