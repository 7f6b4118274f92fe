package cache

import (
	"context"
	"fmt"
	"time"

	"commerce-sync-core/internal/ports"

	"github.com/redis/go-redis/v9"
)

// DefaultDeliveryTTL is how long a webhook delivery id is remembered
const DefaultDeliveryTTL = 24 * time.Hour

// RedisWebhookDeduplicator remembers webhook delivery ids in Redis so
// redelivered webhooks can be acknowledged without reprocessing
type RedisWebhookDeduplicator struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClient connects to the Redis server at redisURL
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisWebhookDeduplicator creates a deduplicator on an existing client
func NewRedisWebhookDeduplicator(client *redis.Client, ttl time.Duration) *RedisWebhookDeduplicator {
	if ttl <= 0 {
		ttl = DefaultDeliveryTTL
	}
	return &RedisWebhookDeduplicator{
		client:    client,
		keyPrefix: "webhook:delivery:",
		ttl:       ttl,
	}
}

var _ ports.WebhookDeduplicator = (*RedisWebhookDeduplicator)(nil)

// FirstDelivery records deliveryID with SETNX and reports whether it was new
func (d *RedisWebhookDeduplicator) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.keyPrefix+deliveryID, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return ok, nil
}
