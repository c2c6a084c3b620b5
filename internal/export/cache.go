package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores rendered previews per event. variant distinguishes renders
// of the same event (document revision and size).
type Cache interface {
	Get(ctx context.Context, eventID, variant string) ([]byte, bool, error)
	Set(ctx context.Context, eventID, variant string, png []byte) error
	Invalidate(ctx context.Context, eventID string) error
}

// RedisCache keeps one hash per event so a save can drop every variant
// with a single DEL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a preview cache on client. Entries expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// DialRedis connects using a redis:// URL and checks the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func previewKey(eventID string) string {
	return "venuemap:preview:" + eventID
}

// Get returns the cached PNG for a variant. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, eventID, variant string) ([]byte, bool, error) {
	b, err := c.client.HGet(ctx, previewKey(eventID), variant).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get preview %s: %w", eventID, err)
	}
	return b, true, nil
}

// Set stores a PNG under the event's hash and refreshes the expiry.
func (c *RedisCache) Set(ctx context.Context, eventID, variant string, png []byte) error {
	key := previewKey(eventID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, variant, png)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set preview %s: %w", eventID, err)
	}
	return nil
}

// Invalidate drops every cached variant for the event.
func (c *RedisCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, previewKey(eventID)).Err(); err != nil {
		return fmt.Errorf("invalidate preview %s: %w", eventID, err)
	}
	return nil
}
