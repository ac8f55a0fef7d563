// Package cache provides the TTL key/value store the engine reads through.
// Absence is a normal outcome, not an error. Two backends ship: an
// in-process TTL map for single-node runs and Redis for shared deployments.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tradeforge/signalguard/internal/domain"
)

// Cache is the engine-facing store. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the raw value and true, or ("", false) when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Close releases backend resources.
	Close() error
}

// Key builds the canonical (symbol, data-kind) cache key.
func Key(symbol string, kind domain.DataKind) string {
	return fmt.Sprintf("signalguard:%s:%s", symbol, kind)
}
