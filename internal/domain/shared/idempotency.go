package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed webhook event IDs so redelivered
// events are handled exactly once.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL is how long a processed event ID is retained.
// Providers stop redelivering well before this window closes.
const DefaultIdempotencyTTL = 72 * time.Hour
