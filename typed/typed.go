// Package typed layers a value type over a byte provider: values go through
// a pluggable codec, and an optional loader turns the cache into a
// read-through one. Useful for derived values kept next to a document store
// (rendered views, parsed configs) without re-deserializing on every hit.
package typed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/dotstore/codec"
	pr "github.com/unkn0wn-root/dotstore/provider"
)

// LoadFunc produces the value for key on a cache miss.
type LoadFunc[V any] func(ctx context.Context, key string) (V, error)

// Options tune the typed cache. Namespace, Provider and Codec are required.
type Options[V any] struct {
	Namespace string // key prefix to avoid collisions, e.g. "view", "config"
	Provider  pr.Provider
	Codec     c.Codec[V]

	TTL    time.Duration // 0 => 10m
	Loader LoadFunc[V]   // nil disables GetOrLoad
}

// Cache is a typed view over a byte provider.
type Cache[V any] struct {
	ns     string
	p      pr.Provider
	codec  c.Codec[V]
	ttl    time.Duration
	loader LoadFunc[V]
	sf     singleflight.Group
}

// New validates opts and constructs the cache.
func New[V any](opts Options[V]) (*Cache[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("typed: namespace is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("typed: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("typed: codec is required")
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &Cache[V]{
		ns:     opts.Namespace,
		p:      opts.Provider,
		codec:  opts.Codec,
		ttl:    ttl,
		loader: opts.Loader,
	}, nil
}

func (t *Cache[V]) key(k string) string { return t.ns + ":" + k }

// Get returns the decoded value for key. An entry that fails to decode is
// deleted (self-heal) and reported as a miss.
func (t *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := t.key(key)
	raw, ok, err := t.p.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.codec.Decode(raw)
	if err != nil {
		_ = t.p.Del(ctx, k)
		return zero, false, nil
	}
	return v, true, nil
}

// Set encodes and stores value under key. ttl == 0 uses the cache default.
func (t *Cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl == 0 {
		ttl = t.ttl
	}
	raw, err := t.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("typed: encode %q: %w", key, err)
	}
	_, err = t.p.Set(ctx, t.key(key), raw, int64(len(raw)), ttl)
	return err
}

// Del removes key.
func (t *Cache[V]) Del(ctx context.Context, key string) error {
	return t.p.Del(ctx, t.key(key))
}

// GetOrLoad returns the cached value, or runs the loader on a miss.
// Concurrent misses for the same key are coalesced into one loader call.
func (t *Cache[V]) GetOrLoad(ctx context.Context, key string) (V, error) {
	var zero V
	if t.loader == nil {
		return zero, fmt.Errorf("typed: no loader configured")
	}
	if v, ok, err := t.Get(ctx, key); err == nil && ok {
		return v, nil
	}
	out, err, _ := t.sf.Do(key, func() (any, error) {
		// Re-check under the flight: another goroutine may have loaded it.
		if v, ok, err := t.Get(ctx, key); err == nil && ok {
			return v, nil
		}
		v, err := t.loader(ctx, key)
		if err != nil {
			return zero, err
		}
		if serr := t.Set(ctx, key, v, 0); serr != nil {
			return v, serr
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return out.(V), nil
}

// Close shuts down the underlying provider.
func (t *Cache[V]) Close(ctx context.Context) error {
	return t.p.Close(ctx)
}
