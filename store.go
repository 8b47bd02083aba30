package dotstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/dotstore/internal/fsutil"
	"github.com/unkn0wn-root/dotstore/internal/lockfile"
	"github.com/unkn0wn-root/dotstore/internal/wire"
	pr "github.com/unkn0wn-root/dotstore/provider"
	"github.com/unkn0wn-root/dotstore/provider/lru"
)

const (
	backupSuffix  = ".bak"
	snapshotEvery = 24 * time.Hour
	snapshotStamp = "20060102-150405"
	queueDepth    = 64
)

type opResult struct {
	v   any
	err error
}

// op is one queued read-modify-write cycle. fn mutates doc in place and
// reports whether the document must be persisted. mutate forces the document
// to be read from disk under the lock: a cached snapshot is only trusted for
// read-only operations, because the stat fingerprint that guards it has the
// kernel's timestamp granularity and a write cycle must never start from a
// possibly stale view.
type op struct {
	ctx    context.Context
	fn     func(doc map[string]any) (v any, dirty bool, err error)
	mutate bool
	done   chan opResult
}

type store struct {
	path     string
	bakPath  string
	cacheKey string

	cache    pr.Provider // nil when disabled
	ownCache bool
	cacheTTL time.Duration

	log    Logger
	hooks  Hooks
	pretty bool
	backup bool

	lock        *lockfile.Lock
	lockTimeout time.Duration

	ops chan op
	wg  sync.WaitGroup

	mu     sync.Mutex // guards closed + sends on ops
	closed bool

	lastSnapshot time.Time // worker-only; rolling 24h window for dated backups

	reads, writes, deletes atomic.Uint64
	cacheHits, cacheMisses atomic.Uint64
	recoveries             atomic.Uint64
}

var _ Store = (*store)(nil)

func newStore(opts Options) (*store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("dotstore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("dotstore: create dir: %w", err)
	}

	s := &store{
		path:     opts.Path,
		bakPath:  opts.Path + backupSuffix,
		cacheKey: "doc:" + filepath.Base(opts.Path),
		cacheTTL: opts.CacheTTL,
		pretty:   opts.Pretty,
		backup:   opts.Backup,
		ops:      make(chan op, queueDepth),
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.lockTimeout = coalesce[time.Duration](opts.LockTimeout, defaultLockTimeout)

	staleAfter := coalesce[time.Duration](opts.LockStaleAfter, defaultLockStaleAfter)
	if staleAfter < 0 {
		staleAfter = 0 // disables staleness checks
	}
	s.lock = lockfile.New(opts.Path, s.lockTimeout, staleAfter)

	if !opts.DisableCache {
		if opts.Provider != nil {
			s.cache = opts.Provider
		} else {
			s.cache = lru.New(lru.Config{
				MaxBytes: coalesce[int64](opts.CacheMaxBytes, DefaultCacheBytes),
				TTL:      opts.CacheTTL,
			})
			s.ownCache = true
		}
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// run is the single worker loop: one operation completes its full cycle
// before the next begins.
func (s *store) run() {
	defer s.wg.Done()
	for o := range s.ops {
		s.exec(o)
	}
}

func (s *store) exec(o op) {
	if err := o.ctx.Err(); err != nil {
		o.done <- opResult{err: err}
		return
	}

	broke, err := s.lock.Acquire()
	if broke {
		s.hooks.StaleLockBroken(s.lock.Path())
		s.log.Warn("stale lock marker removed", Fields{"path": s.lock.Path()})
	}
	if err != nil {
		if errors.Is(err, lockfile.ErrTimeout) {
			err = &LockTimeoutError{Path: s.lock.Path(), Timeout: s.lockTimeout}
		}
		o.done <- opResult{err: err}
		return
	}
	defer func() {
		if rerr := s.lock.Release(); rerr != nil {
			s.log.Error("lock release failed", Fields{"path": s.lock.Path(), "err": rerr})
		}
	}()

	doc := s.load(o.ctx, o.mutate)
	v, dirty, err := o.fn(doc)
	if err == nil && dirty {
		err = s.persist(o.ctx, doc)
	}
	o.done <- opResult{v: v, err: err}
}

// do enqueues a read-only fn behind every pending operation and waits for its
// result. Once started an operation always runs to completion; ctx is only
// honored up to the point the cycle begins.
func (s *store) do(ctx context.Context, fn func(doc map[string]any) (any, bool, error)) (any, error) {
	return s.enqueue(ctx, fn, false)
}

// doMut is do for operations that may write the document back.
func (s *store) doMut(ctx context.Context, fn func(doc map[string]any) (any, bool, error)) (any, error) {
	return s.enqueue(ctx, fn, true)
}

func (s *store) enqueue(ctx context.Context, fn func(doc map[string]any) (any, bool, error), mutate bool) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := op{ctx: ctx, fn: fn, mutate: mutate, done: make(chan opResult, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.ops <- o
	s.mu.Unlock()

	r := <-o.done
	return r.v, r.err
}

// load produces the current document: cache first, then disk, then backup,
// then an empty document. It never fails the caller.
//
// Cached snapshots carry the stat fingerprint of the file they were read
// from; a snapshot whose fingerprint no longer matches the file means
// another process wrote in between, and is dropped. bypassCache skips the
// cache lookup entirely and is set for every mutating operation.
func (s *store) load(ctx context.Context, bypassCache bool) map[string]any {
	fp := s.fingerprint()
	if s.cache != nil && !bypassCache {
		if raw, ok, err := s.cache.Get(ctx, s.cacheKey); err == nil && ok {
			snapFp, payload, derr := wire.DecodeSnapshot(raw)
			switch {
			case derr != nil:
				// self-heal: drop the corrupt snapshot, fall through to disk
				_ = s.cache.Del(ctx, s.cacheKey)
				s.hooks.CacheSelfHeal(s.cacheKey, "decode")
			case snapFp != fp:
				_ = s.cache.Del(ctx, s.cacheKey)
			default:
				doc, perr := decodeDoc(payload)
				if perr == nil {
					s.cacheHits.Add(1)
					return doc
				}
				_ = s.cache.Del(ctx, s.cacheKey)
				s.hooks.CacheSelfHeal(s.cacheKey, "not_object")
			}
		}
		s.cacheMisses.Add(1)
	}

	doc, raw := s.loadDisk()
	if s.cache != nil && raw != nil {
		s.cacheSet(ctx, raw, fp)
	}
	return doc
}

// fingerprint stats the primary file. A missing file maps to a fingerprint
// no cached snapshot can carry.
func (s *store) fingerprint() wire.Fingerprint {
	st, err := os.Stat(s.path)
	if err != nil {
		return wire.Fingerprint{MtimeNano: 0, Size: -1}
	}
	return wire.Fingerprint{MtimeNano: st.ModTime().UnixNano(), Size: st.Size()}
}

func (s *store) loadDisk() (map[string]any, []byte) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("primary read failed", Fields{"path": s.path, "err": err})
		}
		return map[string]any{}, nil
	}

	doc, derr := decodeDoc(data)
	if derr == nil {
		return doc, data
	}

	s.recoveries.Add(1)
	s.hooks.CorruptPrimary(s.path, derr)
	s.log.Warn("primary document corrupt", Fields{"path": s.path, "err": derr})

	if s.backup {
		if bdata, berr := os.ReadFile(s.bakPath); berr == nil {
			if bdoc, berr2 := decodeDoc(bdata); berr2 == nil {
				s.hooks.BackupRestored(s.path)
				s.log.Info("document restored from backup", Fields{"path": s.bakPath})
				return bdoc, bdata
			}
		}
	}

	s.hooks.EmptyFallback(s.path)
	s.log.Warn("no usable backup; continuing with empty document", Fields{"path": s.path})
	return map[string]any{}, nil
}

// persist rewrites the whole document: backup the current primary, write the
// new content through a temp file + rename, refresh the cached snapshot.
func (s *store) persist(ctx context.Context, doc map[string]any) error {
	data, err := s.encode(doc)
	if err != nil {
		return fmt.Errorf("dotstore: encode document: %w", err)
	}

	if s.backup {
		s.runBackup()
	}
	if err := fsutil.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("dotstore: persist: %w", err)
	}
	s.writes.Add(1)

	if s.cache != nil {
		// fingerprint taken under the lock, so it matches our own write
		s.cacheSet(ctx, data, s.fingerprint())
	}
	return nil
}

func (s *store) cacheSet(ctx context.Context, data []byte, fp wire.Fingerprint) {
	framed := wire.EncodeSnapshot(fp, data)
	ok, err := s.cache.Set(ctx, s.cacheKey, framed, int64(len(framed)), s.cacheTTL)
	if err != nil {
		s.log.Debug("cache set failed", Fields{"key": s.cacheKey, "err": err})
		return
	}
	if !ok {
		s.hooks.ProviderSetRejected(s.cacheKey)
	}
}

// runBackup copies the current primary to the fixed backup path before it is
// overwritten, plus a timestamped snapshot at most once per rolling 24h.
func (s *store) runBackup() {
	if _, err := fsutil.CopyFile(s.path, s.bakPath, 0o644); err != nil {
		s.log.Warn("backup copy failed", Fields{"path": s.bakPath, "err": err})
	}
	if time.Since(s.lastSnapshot) < snapshotEvery {
		return
	}
	snap := s.path + "." + time.Now().Format(snapshotStamp) + backupSuffix
	copied, err := fsutil.CopyFile(s.path, snap, 0o644)
	if err != nil {
		s.log.Warn("snapshot copy failed", Fields{"path": snap, "err": err})
		return
	}
	if copied {
		s.lastSnapshot = time.Now()
	}
}

func (s *store) encode(doc map[string]any) ([]byte, error) {
	if s.pretty {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

func (s *store) Stats() Stats {
	return Stats{
		Reads:       s.reads.Load(),
		Writes:      s.writes.Load(),
		Deletes:     s.deletes.Load(),
		CacheHits:   s.cacheHits.Load(),
		CacheMisses: s.cacheMisses.Load(),
		Recoveries:  s.recoveries.Load(),
	}
}

// Close stops accepting operations, waits for the queue to drain and closes
// the cache when the store owns it. Safe to call multiple times.
func (s *store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ops)
	s.mu.Unlock()

	s.wg.Wait()
	if s.cache != nil && s.ownCache {
		return s.cache.Close(ctx)
	}
	return nil
}

// decodeDoc parses data as a JSON object. Valid JSON with a non-object root
// counts as corruption: the store's ground truth is always one object.
func decodeDoc(data []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("root is %s, not an object", typeName(v))
	}
	return doc, nil
}
