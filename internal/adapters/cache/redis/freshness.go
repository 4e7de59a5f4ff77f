package redis

import (
	"context"
	"fmt"
	"time"

	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/redis/go-redis/v9"
)

// FreshnessTracker records replica refreshes as expiring Redis keys so that
// every instance of a service shares one staleness window.
// Key format: replica:fresh:<service>:<scope>
type FreshnessTracker struct {
	client  redis.Cmdable
	service string
	ttl     time.Duration
}

var _ portsup.FreshnessTracker = (*FreshnessTracker)(nil)

// NewFreshnessTracker wraps a Redis client. A zero ttl disables caching.
func NewFreshnessTracker(client redis.Cmdable, service string, ttl time.Duration) *FreshnessTracker {
	return &FreshnessTracker{client: client, service: service, ttl: ttl}
}

func (f *FreshnessTracker) IsFresh(ctx context.Context, key string) (bool, error) {
	if f.ttl <= 0 {
		return false, nil
	}
	n, err := f.client.Exists(ctx, f.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("freshness check: %w", err)
	}
	return n > 0, nil
}

func (f *FreshnessTracker) MarkFresh(ctx context.Context, key string) error {
	if f.ttl <= 0 {
		return nil
	}
	return f.client.Set(ctx, f.key(key), "1", f.ttl).Err()
}

func (f *FreshnessTracker) Invalidate(ctx context.Context, key string) error {
	return f.client.Del(ctx, f.key(key)).Err()
}

func (f *FreshnessTracker) key(k string) string {
	return fmt.Sprintf("replica:fresh:%s:%s", f.service, k)
}
