// Package sloghook logs stash hook events through log/slog.
package sloghook

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/stash"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredEvery uint64
	PersistEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr atomic.Uint64
	persistCtr atomic.Uint64
}

var _ stash.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CorruptEntry(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("stash.corrupt_entry",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) SerializationRejected(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("stash.serialization_rejected",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ExpiredRead(key string) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("stash.expired_read",
		"key", h.redact(key))
}

func (h *Hooks) ReservedKeyRejected(key string) {
	if h.l == nil {
		return
	}
	// reserved keys are fixed names, not user data
	h.l.Warn("stash.reserved_key_rejected",
		"key", key)
}

func (h *Hooks) CachePersisted(storageKey string, entries, bytes int) {
	if h.l == nil || !sample(h.opts.PersistEvery, &h.persistCtr) {
		return
	}
	h.l.Debug("stash.cache_persisted",
		"key", storageKey,
		"entries", entries,
		"bytes", bytes)
}

func (h *Hooks) CacheLoaded(storageKey string, entries int, created bool) {
	if h.l == nil {
		return
	}
	h.l.Info("stash.cache_loaded",
		"key", storageKey,
		"entries", entries,
		"created", created)
}
