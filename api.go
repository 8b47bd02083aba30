package dotstore

import (
	"context"
	"time"

	pr "github.com/unkn0wn-root/dotstore/provider"
)

// SetOptions refine how Set treats an existing value at the target path.
// Evaluated in order: Operation (numeric existing value only), then Append
// (both arrays), then Merge (both objects), then plain overwrite.
type SetOptions struct {
	// Merge shallow-merges the new object into the existing object,
	// new keys winning.
	Merge bool
	// Append concatenates the new array onto the existing array.
	Append bool
	// Operation applies an arithmetic operator between the existing numeric
	// value and the numeric operand: "+", "-", "*", "/", "%", "min", "max".
	Operation string
}

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	Reads       uint64
	Writes      uint64
	Deletes     uint64
	CacheHits   uint64
	CacheMisses uint64
	Recoveries  uint64 // corrupt primary recovered via backup or empty fallback
}

// Store is one logical JSON document on disk, addressed by dot paths.
//
// Every operation runs its full read-modify-write-persist cycle before the
// next begins (FIFO per instance); the lock file extends that exclusion to
// other processes. Values passed in and handed out are snapshots: the store
// never aliases its internal tree to callers.
type Store interface {
	// Get returns the value at path, or def when any segment is absent.
	// The empty path returns the whole document.
	Get(ctx context.Context, path string, def any) (any, error)
	// Has reports whether the full path resolves.
	Has(ctx context.Context, path string) (bool, error)
	// Set assigns value at path, materializing intermediate objects.
	Set(ctx context.Context, path string, value any) error
	// SetWith is Set with merge/append/arithmetic refinement.
	SetWith(ctx context.Context, path string, value any, o SetOptions) error
	// Update applies fn to the existing value and writes the result back.
	// Returns false without mutating or persisting when path is absent.
	Update(ctx context.Context, path string, fn func(any) any) (bool, error)
	// Toggle flips the boolean at path and returns the new value.
	Toggle(ctx context.Context, path string) (bool, error)
	// Delete removes the leaf at path, reporting whether a removal occurred.
	Delete(ctx context.Context, path string) (bool, error)
	// Merge shallow-merges obj into the object at path (empty object when
	// absent), new keys winning.
	Merge(ctx context.Context, path string, obj map[string]any) error

	// Numeric helpers; each returns the value after the operation.
	// Absent paths default to 0.
	Plus(ctx context.Context, path string, operand float64) (float64, error)
	Minus(ctx context.Context, path string, operand float64) (float64, error)
	Multiply(ctx context.Context, path string, operand float64) (float64, error)
	Divide(ctx context.Context, path string, operand float64) (float64, error)
	Min(ctx context.Context, path string, operand float64) (float64, error)
	Max(ctx context.Context, path string, operand float64) (float64, error)

	// Array helpers. Mutating ones treat an absent path as an empty array;
	// Find/Filter/Slice are read-only and never persist.
	Push(ctx context.Context, path string, items ...any) (int, error)
	Pop(ctx context.Context, path string) (any, bool, error)
	Unique(ctx context.Context, path string) (int, error)
	Reverse(ctx context.Context, path string) error
	Sort(ctx context.Context, path string) error
	Find(ctx context.Context, path string, pred func(any) bool) (any, bool, error)
	Filter(ctx context.Context, path string, pred func(any) bool) ([]any, error)
	Slice(ctx context.Context, path string, start, end int) ([]any, error)

	// Whole-document views (top level).
	Keys(ctx context.Context) ([]string, error)
	Values(ctx context.Context) ([]any, error)
	Entries(ctx context.Context) (map[string]any, error)
	Size(ctx context.Context) (int, error)

	// Clear resets the document to {} and persists.
	Clear(ctx context.Context) error
	// SaveNow forces an immediate flush of the current document.
	SaveNow(ctx context.Context) error

	Stats() Stats
	// Close drains pending operations, releases any held lock and shuts the
	// cache provider down (when owned by the store).
	Close(ctx context.Context) error
}

// Options tune the store. Only Path is required; everything else has a
// sensible default.
type Options struct {
	// Required. Full path of the JSON document file; created on first write.
	Path string

	Provider      pr.Provider   // nil => built-in LRU cache (provider/lru)
	CacheMaxBytes int64         // built-in cache budget; 0 => 2 MiB
	CacheTTL      time.Duration // cached snapshot lifetime; 0 => no expiry
	DisableCache  bool          // bypass the cache entirely

	Pretty bool // indent the persisted JSON
	Backup bool // backup-on-write + corruption-fallback reads

	LockTimeout    time.Duration // 0 => 5s
	LockStaleAfter time.Duration // 0 => 30s; < 0 disables staleness checks

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// DefaultCacheBytes bounds the store-owned cache when CacheMaxBytes is zero.
const DefaultCacheBytes = 2 << 20 // 2 MiB

const (
	defaultLockTimeout    = 5 * time.Second
	defaultLockStaleAfter = 30 * time.Second
)

// New wires a Store from opts.
func New(opts Options) (Store, error) {
	return newStore(opts)
}
