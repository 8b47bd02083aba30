// Package provider defines the byte-store abstraction the document store uses
// as its read cache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no metadata,
// no re-encoding, no mutation). The store validates cached documents on read
// and deletes entries that fail to decode, so foreign writes under its keys
// are treated as corruption.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Implementations must be safe
// for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors come back as (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (ttl <= 0 means no expiry).
	// Cost is advisory; stores without cost accounting may ignore it.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
