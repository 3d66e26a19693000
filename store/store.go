package store

import (
	"context"
	"net/netip"
	"time"
)

// Storer is the common interface for all storage backends (Redis, In-Memory).
// It backs the per-IP request counters and the dynamic block list.
type Storer interface {
	// Increment adds one to key and returns the new value. A positive ttl
	// (re)sets the key's expiry, so it only drops a counter that has seen no
	// increments for ttl.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Decrement subtracts one from key. A counter never goes below zero: a
	// missing key, or one that reaches zero, is removed and 0 is returned.
	Decrement(ctx context.Context, key string) (int64, error)
	IsBlocked(ctx context.Context, key string) (bool, error)
	// Block blocks key for ttl; ttl <= 0 blocks until Unblock.
	Block(ctx context.Context, key string, ttl time.Duration, reason string) error
	Unblock(ctx context.Context, key string) error
	// ListBlocks maps every active block to its reason.
	ListBlocks(ctx context.Context) (map[string]string, error)
	Close() error
}

// CanonicalIP returns the form in which an address is used as a key:
// IPv4-mapped IPv6 addresses are unmapped and IPv6 is written compressed.
func CanonicalIP(s string) (string, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return "", err
	}
	return a.Unmap().String(), nil
}
