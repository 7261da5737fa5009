package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that have already been processed.
// It is a fast path only; durable at-most-once guarantees come from
// database uniqueness constraints.
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it
	// was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Forget removes a key so the operation may be retried.
	Forget(ctx context.Context, key string) error

	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
