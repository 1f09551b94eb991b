// Package cache keeps per-user dashboard summaries in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "schnei:dashboard:"
	genPrefix = "schnei:dashboard:gen:"
)

// DefaultTTL bounds how stale a cached summary may be.
const DefaultTTL = 5 * time.Minute

// Version is the generation of a user's cached summary. Invalidate moves the
// user to the next generation, so a summary computed from reads that began
// before the invalidation is stored under a key nothing reads any more.
type Version int64

// SummaryCache stores one JSON document per user and generation.
type SummaryCache interface {
	// Get decodes the cached value into dst and reports whether it was present,
	// along with the generation to pass to Set.
	Get(ctx context.Context, userID uuid.UUID, dst any) (Version, bool, error)
	Set(ctx context.Context, userID uuid.UUID, version Version, v any) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// kv is the subset of *redis.Client the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type RedisSummaryCache struct {
	client kv
	ttl    time.Duration
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return newRedisSummaryCache(client, ttl)
}

func newRedisSummaryCache(client kv, ttl time.Duration) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisSummaryCache{client: client, ttl: ttl}
}

// Key is where the summary of userID at version is stored.
func Key(userID uuid.UUID, version Version) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, userID, version)
}

func genKey(userID uuid.UUID) string {
	return genPrefix + userID.String()
}

func (c *RedisSummaryCache) Get(ctx context.Context, userID uuid.UUID, dst any) (Version, bool, error) {
	gen, err := c.client.Get(ctx, genKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, false, fmt.Errorf("get summary generation: %w", err)
	}
	version := Version(gen)

	data, err := c.client.Get(ctx, Key(userID, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return version, false, nil
		}
		return version, false, fmt.Errorf("get cached summary: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return version, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return version, true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, userID uuid.UUID, version Version, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, Key(userID, version), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached summary: %w", err)
	}
	return nil
}

// Invalidate bumps the user's generation; summaries of older generations
// expire with their TTL.
func (c *RedisSummaryCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Incr(ctx, genKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached summary: %w", err)
	}
	return nil
}

// NoopCache never holds anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID, any) (Version, bool, error) { return 0, false, nil }
func (NoopCache) Set(context.Context, uuid.UUID, Version, any) error         { return nil }
func (NoopCache) Invalidate(context.Context, uuid.UUID) error                { return nil }
