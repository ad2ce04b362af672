// Package cache provides the key/value stores the token directory keeps its
// remote snapshot in. Values are JSON encoded so every backend behaves the same.
package cache

import (
	"context"
	"time"
)

// Store is an expiring key/value store
type Store interface {
	// Get decodes the value stored under key into dst. It returns false
	// when the key is missing or expired.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set stores value under key for ttl. A zero ttl never expires.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete invalidates key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
