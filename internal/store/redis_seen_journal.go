package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// seenKey is appended to the prefix to form the SET key.
const seenKey = "seen"

// RedisSeenJournal stores processed item IDs in a redis SET.
// It satisfies crawl.SeenJournal.
type RedisSeenJournal struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSeenJournal connects a journal to the redis server at addr.
// A positive ttl is refreshed on every Record, so the set expires only after
// ttl without any activity.
func NewRedisSeenJournal(addr, prefix string, ttl time.Duration) *RedisSeenJournal {
	return NewRedisSeenJournalWithClient(redis.NewClient(&redis.Options{Addr: addr}), prefix, ttl)
}

// NewRedisSeenJournalWithClient wraps an existing client.
func NewRedisSeenJournalWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisSeenJournal {
	return &RedisSeenJournal{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key returns the redis key of the SET.
func (j *RedisSeenJournal) Key() string {
	return j.prefix + seenKey
}

// Ping checks that the server is reachable.
func (j *RedisSeenJournal) Ping(ctx context.Context) error {
	if err := j.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Load returns every recorded item ID in sorted order.
func (j *RedisSeenJournal) Load(ctx context.Context) ([]string, error) {
	ids, err := j.client.SMembers(ctx, j.Key()).Result()
	if err != nil {
		return nil, fmt.Errorf("load seen set %s: %w", j.Key(), err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Record adds id to the set.
func (j *RedisSeenJournal) Record(ctx context.Context, id string) error {
	pipe := j.client.TxPipeline()
	pipe.SAdd(ctx, j.Key(), id)
	if j.ttl > 0 {
		pipe.Expire(ctx, j.Key(), j.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record seen item %s: %w", id, err)
	}
	return nil
}

// Close closes the redis client.
func (j *RedisSeenJournal) Close() error {
	return j.client.Close()
}
