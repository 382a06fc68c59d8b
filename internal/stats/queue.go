package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements report.QueueHealthSource for a Redis-backed job
// queue: the queue itself is a list and the worker records the unix time of
// the last processed job under a separate key.
type RedisQueue struct {
	client     *redis.Client
	queueKey   string
	lastJobKey string
}

// NewRedisQueue creates a queue health source over an existing client.
func NewRedisQueue(client *redis.Client, queueKey, lastJobKey string) *RedisQueue {
	return &RedisQueue{
		client:     client,
		queueKey:   queueKey,
		lastJobKey: lastJobKey,
	}
}

func (q *RedisQueue) HealthCheck(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("queue health check failed: %w", err)
	}
	return nil
}

func (q *RedisQueue) QueueSize(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue size: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) LastJobProcessedAt(ctx context.Context) (time.Time, error) {
	val, err := q.client.Get(ctx, q.lastJobKey).Result()
	if err == redis.Nil {
		return time.Time{}, fmt.Errorf("no job has been processed yet")
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last job time: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed last job timestamp %q: %w", val, err)
	}
	return time.Unix(unix, 0).UTC(), nil
}
