package store

import (
	"context"
	"sync"
	"time"
)

type LocalStore struct {
	mu       sync.RWMutex
	counters map[string]localCounter
	blocks   map[string]localBlock

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

type localCounter struct {
	Value  int64
	Expiry time.Time
}

type localBlock struct {
	Reason string
	Expiry time.Time
}

func expired(expiry, now time.Time) bool {
	return !expiry.IsZero() && !now.Before(expiry)
}

func NewLocalStore() *LocalStore {
	s := newLocalStore(time.Now)
	go s.cleanupLoop(5 * time.Minute)
	return s
}

func newLocalStore(now func() time.Time) *LocalStore {
	return &LocalStore{
		counters: make(map[string]localCounter),
		blocks:   make(map[string]localBlock),
		now:      now,
		done:     make(chan struct{}),
	}
}

func (s *LocalStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || expired(c.Expiry, now) {
		c = localCounter{}
	}
	c.Value++
	if ttl > 0 {
		c.Expiry = now.Add(ttl)
	}
	s.counters[key] = c
	return c.Value, nil
}

func (s *LocalStore) Decrement(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || expired(c.Expiry, s.now()) || c.Value <= 1 {
		delete(s.counters, key)
		return 0, nil
	}
	c.Value--
	s.counters[key] = c
	return c.Value, nil
}

func (s *LocalStore) IsBlocked(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blocks[key]
	return ok && !expired(b.Expiry, s.now()), nil
}

func (s *LocalStore) Block(_ context.Context, key string, ttl time.Duration, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiry time.Time
	if ttl > 0 {
		expiry = s.now().Add(ttl)
	}
	s.blocks[key] = localBlock{Reason: reason, Expiry: expiry}
	return nil
}

func (s *LocalStore) Unblock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, key)
	return nil
}

func (s *LocalStore) ListBlocks(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	res := make(map[string]string, len(s.blocks))
	for k, v := range s.blocks {
		if !expired(v.Expiry, now) {
			res[k] = v.Reason
		}
	}
	return res, nil
}

// Close stops the cleanup loop.
func (s *LocalStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *LocalStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *LocalStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.blocks {
		if expired(v.Expiry, now) {
			delete(s.blocks, k)
		}
	}
	for k, v := range s.counters {
		if expired(v.Expiry, now) {
			delete(s.counters, k)
		}
	}
}
