package dotstore

// Hooks are lightweight callbacks for high-signal events the store recovers
// from on its own and therefore never surfaces as errors. Implementations
// MUST be cheap and non-blocking; the store calls them on hot paths. Wrap
// with hooks/async to decouple slow sinks.
type Hooks interface {
	// The primary file failed to parse as a JSON object.
	CorruptPrimary(path string, err error)

	// A corrupt primary was replaced by the backup copy.
	BackupRestored(path string)

	// Neither primary nor backup was usable; the store proceeded with an
	// empty document.
	EmptyFallback(path string)

	// A cached document snapshot failed to decode and was deleted.
	// reason ∈ {"decode", "not_object"}
	CacheSelfHeal(key, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(key string)

	// A lock marker older than the staleness grace was removed.
	StaleLockBroken(path string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CorruptPrimary(string, error) {}
func (NopHooks) BackupRestored(string)        {}
func (NopHooks) EmptyFallback(string)         {}
func (NopHooks) CacheSelfHeal(string, string) {}
func (NopHooks) ProviderSetRejected(string)   {}
func (NopHooks) StaleLockBroken(string)       {}
