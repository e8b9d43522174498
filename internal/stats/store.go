// Package stats keeps per-event-name counters in Redis so they survive relay
// restarts and can be read by other processes.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "vrrelay"

// Store writes to two hashes: <prefix>:events maps event name to relay
// count, <prefix>:last maps event name to the last time it was relayed.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore connects to redisURL, which is either a redis:// URL or a bare
// host:port, and verifies the connection.
func NewStore(redisURL, prefix string) (*Store, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewStoreWithClient(rdb, prefix), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func parseRedisURL(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:         raw,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, nil
}

func (s *Store) eventsKey() string { return s.prefix + ":events" }
func (s *Store) lastKey() string   { return s.prefix + ":last" }

// Record counts one relay of the named event at time at.
func (s *Store) Record(ctx context.Context, name string, at time.Time) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.eventsKey(), name, 1)
		pipe.HSet(ctx, s.lastKey(), name, at.UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record event %q: %w", name, err)
	}
	return nil
}

// Counts returns every event name seen and how often it was relayed.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	fields, err := s.client.HGetAll(ctx, s.eventsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event counts: %w", err)
	}
	counts := make(map[string]int64, len(fields))
	for name, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		counts[name] = n
	}
	return counts, nil
}

// LastSeen reports when name was last relayed. ok is false if never.
func (s *Store) LastSeen(ctx context.Context, name string) (at time.Time, ok bool, err error) {
	v, err := s.client.HGet(ctx, s.lastKey(), name).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last seen for %q: %w", name, err)
	}
	at, err = time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt timestamp for %q: %w", name, err)
	}
	return at, true, nil
}

// Reset deletes all counters under the prefix.
func (s *Store) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.eventsKey(), s.lastKey()).Err()
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
