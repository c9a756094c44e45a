package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const snapshotKey = "vitalwatch:roster:snapshot"

// Cache keeps the latest roster snapshot in Redis so concurrent portal reads
// between monitor refreshes do not each rebuild the roster.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a snapshot cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached snapshot, or nil when the cache is empty or expired.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, snapshotKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt entry is treated as a miss so the roster rebuilds.
		c.logger.Warn("Discarding corrupt roster snapshot cache entry", zap.Error(err))
		return nil, nil
	}
	return &snap, nil
}

// Set stores the snapshot with the configured TTL.
func (c *Cache) Set(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}

	c.logger.Debug("Updated roster snapshot cache",
		zap.Int("entries", len(snap.Entries)),
		zap.Duration("ttl", c.ttl),
	)
	return nil
}

// Invalidate drops the cached snapshot, forcing the next read to rebuild.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot cache: %w", err)
	}
	return nil
}
