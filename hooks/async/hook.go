// Package asynchook decouples hook sinks from the store's hot path: events
// are handed to worker goroutines through a bounded queue and dropped when
// the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := dotstore.New(dotstore.Options{
//	    Path:  "data/app.json",
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/dotstore"
)

type Hooks struct {
	inner dotstore.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ dotstore.Hooks = (*Hooks)(nil)

func New(inner dotstore.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) CorruptPrimary(path string, err error) {
	h.try(func() { h.inner.CorruptPrimary(path, err) })
}
func (h *Hooks) BackupRestored(path string) { h.try(func() { h.inner.BackupRestored(path) }) }
func (h *Hooks) EmptyFallback(path string)  { h.try(func() { h.inner.EmptyFallback(path) }) }
func (h *Hooks) CacheSelfHeal(key, reason string) {
	h.try(func() { h.inner.CacheSelfHeal(key, reason) })
}
func (h *Hooks) ProviderSetRejected(key string) {
	h.try(func() { h.inner.ProviderSetRejected(key) })
}
func (h *Hooks) StaleLockBroken(path string) { h.try(func() { h.inner.StaleLockBroken(path) }) }
