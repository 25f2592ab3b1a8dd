package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
)

// SnapshotCache is a read-through cache for snapshot lookups by
// warehouse-item pair. Implementations must treat cache failures as misses;
// the cache is an optimization, never the source of truth.
type SnapshotCache interface {
	// Get returns the cached snapshot or nil on a miss
	Get(ctx context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error)
	// Set stores the snapshot under the pair key
	Set(ctx context.Context, snapshot *inventory.InventorySnapshot) error
	// Invalidate drops the cached entry for the pair
	Invalidate(ctx context.Context, warehouseID, itemID uuid.UUID) error
}

// NoOpSnapshotCache misses on every read. Used in tests and when Redis is
// not configured.
type NoOpSnapshotCache struct{}

// NewNoOpSnapshotCache creates a cache that caches nothing
func NewNoOpSnapshotCache() *NoOpSnapshotCache {
	return &NoOpSnapshotCache{}
}

// Get always misses
func (c *NoOpSnapshotCache) Get(_ context.Context, _, _ uuid.UUID) (*inventory.InventorySnapshot, error) {
	return nil, nil
}

// Set does nothing
func (c *NoOpSnapshotCache) Set(_ context.Context, _ *inventory.InventorySnapshot) error {
	return nil
}

// Invalidate does nothing
func (c *NoOpSnapshotCache) Invalidate(_ context.Context, _, _ uuid.UUID) error {
	return nil
}

var _ SnapshotCache = (*NoOpSnapshotCache)(nil)
