// Package sloghooks is a dotstore.Hooks implementation that reports store
// events through log/slog, with optional sampling for the chatty ones.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/dotstore"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	RejectEvery   uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	rejectCtr   atomic.Uint64
}

var _ dotstore.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CorruptPrimary(path string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("dotstore.corrupt_primary",
		"path", path,
		"err", err)
}

func (h *Hooks) BackupRestored(path string) {
	if h.l == nil {
		return
	}
	h.l.Warn("dotstore.backup_restored",
		"path", path)
}

func (h *Hooks) EmptyFallback(path string) {
	if h.l == nil {
		return
	}
	h.l.Error("dotstore.empty_fallback",
		"path", path,
		"msg", "primary and backup unusable; data may be lost")
}

func (h *Hooks) CacheSelfHeal(key, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("dotstore.cache_self_heal",
		"key", key,
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(key string) {
	if h.l == nil || !sample(h.opts.RejectEvery, &h.rejectCtr) {
		return
	}
	h.l.Warn("dotstore.provider_set_rejected",
		"key", key)
}

func (h *Hooks) StaleLockBroken(path string) {
	if h.l == nil {
		return
	}
	h.l.Warn("dotstore.stale_lock_broken",
		"path", path)
}
