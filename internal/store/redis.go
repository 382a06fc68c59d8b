package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over a shared Redis instance. This is the
// distributed backend: every application process pointed at the same Redis
// coordinates dedup, rate limiting, and batch flushing through it.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore and validates the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing Redis client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Client exposes the underlying Redis client for components that need raw
// commands beyond the Store interface, such as queue health probes.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: setnx %s: %v", ErrUnavailable, key, err)
	}
	return ok, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	// INCR and EXPIRE run in a MULTI so the counter can never be left
	// without an expiry. EXPIRE NX only sets the ttl on first increment.
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ErrUnavailable, key, err)
	}
	return incr.Val(), nil
}

func (s *RedisStore) Append(ctx context.Context, key, item string, maxLen int64, ttl time.Duration) (int64, error) {
	var push *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		push = pipe.RPush(ctx, key, item)
		if maxLen > 0 {
			pipe.LTrim(ctx, key, -maxLen, -1)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: rpush %s: %v", ErrUnavailable, key, err)
	}
	return push.Val(), nil
}

func (s *RedisStore) DrainAndDelete(ctx context.Context, key string) ([]string, error) {
	// LRANGE + DEL inside MULTI/EXEC executes atomically on the server,
	// so concurrent drains of the same key cannot both see its contents.
	var lrange *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: drain %s: %v", ErrUnavailable, key, err)
	}
	return lrange.Val(), nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrUnavailable, key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}
