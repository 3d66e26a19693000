package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const blockPrefix = "block:"

type RedisStore struct {
	Client *redis.Client
	// Prefix namespaces every key this store touches.
	Prefix string
}

// NewRedisStore connects to addr and checks the connection with PING.
func NewRedisStore(ctx context.Context, addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &RedisStore{Client: client, Prefix: "htmxdemo:"}, nil
}

func (s *RedisStore) key(k string) string { return s.Prefix + k }

func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := s.key(key)
	pipe := s.Client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	if ttl > 0 {
		pipe.Expire(ctx, k, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// decrementScript decrements KEYS[1] and deletes it once it is no longer
// positive, so a release without a matching acquire cannot go negative.
var decrementScript = redis.NewScript(`
local v = redis.call("DECR", KEYS[1])
if v <= 0 then
	redis.call("DEL", KEYS[1])
	return 0
end
return v
`)

func (s *RedisStore) Decrement(ctx context.Context, key string) (int64, error) {
	return decrementScript.Run(ctx, s.Client, []string{s.key(key)}).Int64()
}

func (s *RedisStore) IsBlocked(ctx context.Context, key string) (bool, error) {
	n, err := s.Client.Exists(ctx, s.key(blockPrefix+key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Block(ctx context.Context, key string, ttl time.Duration, reason string) error {
	if ttl < 0 {
		ttl = 0
	}
	// A zero expiration makes the key persistent.
	return s.Client.Set(ctx, s.key(blockPrefix+key), reason, ttl).Err()
}

func (s *RedisStore) Unblock(ctx context.Context, key string) error {
	return s.Client.Del(ctx, s.key(blockPrefix+key)).Err()
}

func (s *RedisStore) ListBlocks(ctx context.Context) (map[string]string, error) {
	prefix := s.key(blockPrefix)
	blocks := make(map[string]string)

	iter := s.Client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		val, err := s.Client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, err
		}
		blocks[strings.TrimPrefix(k, prefix)] = val
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *RedisStore) Close() error { return s.Client.Close() }
