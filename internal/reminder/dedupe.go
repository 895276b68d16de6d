package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedupe prevents double-calling a patient when the batch job is re-run
// within the same window.
type Dedupe interface {
	// MarkOnce records the key and reports whether this is its first use.
	MarkOnce(ctx context.Context, key string) (bool, error)
}

// RedisDedupe marks reminded appointments in Redis with a TTL.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupe creates a dedupe store. ttl bounds how long a placed
// reminder suppresses repeats.
func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDedupe{client: client, ttl: ttl}
}

func (d *RedisDedupe) MarkOnce(ctx context.Context, key string) (bool, error) {
	first, err := d.client.SetNX(ctx, "reminder:placed:"+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reminder: dedupe mark: %w", err)
	}
	return first, nil
}

// NoopDedupe never suppresses; used when Redis is not configured.
type NoopDedupe struct{}

func (NoopDedupe) MarkOnce(ctx context.Context, key string) (bool, error) {
	return true, nil
}
