package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers caller-supplied idempotency keys so that a
// blind retry of a write operation does not append a second ledger entry.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already seen.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL is how long a processed key is remembered.
// After this window the same key is accepted again.
const DefaultIdempotencyTTL = 24 * time.Hour
