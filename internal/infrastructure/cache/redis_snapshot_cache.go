package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSnapshotCache caches snapshot lookups in Redis, keyed by the
// warehouse-item pair. Entries are serialized as JSON and expire after the
// configured TTL so a lost invalidation heals itself.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache creates a Redis-backed snapshot cache
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSnapshotCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached snapshot or nil on a miss
func (c *RedisSnapshotCache) Get(ctx context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(warehouseID, itemID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	var snapshot inventory.InventorySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// Corrupt entry, drop it and treat as a miss
		c.client.Del(ctx, snapshotKey(warehouseID, itemID))
		return nil, nil
	}
	return &snapshot, nil
}

// Set stores the snapshot under the pair key with the cache TTL
func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot *inventory.InventorySnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	key := snapshotKey(snapshot.WarehouseID, snapshot.ItemID)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry for the pair
func (c *RedisSnapshotCache) Invalidate(ctx context.Context, warehouseID, itemID uuid.UUID) error {
	if err := c.client.Del(ctx, snapshotKey(warehouseID, itemID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached snapshot: %w", err)
	}
	return nil
}

// snapshotKey builds the cache key for a warehouse-item pair
func snapshotKey(warehouseID, itemID uuid.UUID) string {
	return fmt.Sprintf("inventory:%s:%s", warehouseID, itemID)
}

// Ensure RedisSnapshotCache implements SnapshotCache
var _ appinv.SnapshotCache = (*RedisSnapshotCache)(nil)
