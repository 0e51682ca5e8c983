package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// alertKeyPrefix is the prefix for all alert deduplication keys
	alertKeyPrefix = "offramp:alert:"
	// DefaultAlertCooldown is how long a repeated alert stays suppressed
	DefaultAlertCooldown = time.Hour
)

// AlertDeduplicator provides Redis-based alert deduplication
type AlertDeduplicator struct {
	client *redis.Client
}

// NewAlertDeduplicator creates a new AlertDeduplicator instance
func NewAlertDeduplicator(client *redis.Client) *AlertDeduplicator {
	return &AlertDeduplicator{client: client}
}

// Format: offramp:alert:{stage}:{intent_id}
func (d *AlertDeduplicator) buildKey(stage, intentID string) string {
	return fmt.Sprintf("%s%s:%s", alertKeyPrefix, stage, intentID)
}

// TryAcquire atomically claims the right to send an alert for the intent and
// stage. It returns false while an earlier alert is in cooldown.
func (d *AlertDeduplicator) TryAcquire(ctx context.Context, stage, intentID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultAlertCooldown
	}
	acquired, err := d.client.SetNX(ctx, d.buildKey(stage, intentID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire alert lock: %w", err)
	}
	return acquired, nil
}

// Clear lifts the cooldown so the next failure alerts again.
func (d *AlertDeduplicator) Clear(ctx context.Context, stage, intentID string) error {
	if err := d.client.Del(ctx, d.buildKey(stage, intentID)).Err(); err != nil {
		return fmt.Errorf("failed to clear alert key: %w", err)
	}
	return nil
}
