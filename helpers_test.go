package stash

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/medium"
	"github.com/unkn0wn-root/stash/medium/memory"
)

var t0 = time.Unix(1_700_000_000, 0)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// flakyMedium fails writes while failSet is true.
type flakyMedium struct {
	*memory.Memory
	mu      sync.Mutex
	failSet bool
}

var _ medium.Medium = (*flakyMedium)(nil)

var errMediumDown = errors.New("medium down")

func (m *flakyMedium) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	fail := m.failSet
	m.mu.Unlock()
	if fail {
		return errMediumDown
	}
	return m.Memory.Set(ctx, key, value)
}

func (m *flakyMedium) setFailing(v bool) {
	m.mu.Lock()
	m.failSet = v
	m.mu.Unlock()
}

type recordingHooks struct {
	NopHooks
	mu        sync.Mutex
	corrupt   []string
	rejected  []string
	expired   []string
	reserved  []string
	persisted int
	loaded    []bool
}

func (h *recordingHooks) CorruptEntry(k string, _ error) {
	h.mu.Lock()
	h.corrupt = append(h.corrupt, k)
	h.mu.Unlock()
}

func (h *recordingHooks) SerializationRejected(k string, _ error) {
	h.mu.Lock()
	h.rejected = append(h.rejected, k)
	h.mu.Unlock()
}

func (h *recordingHooks) ExpiredRead(k string) {
	h.mu.Lock()
	h.expired = append(h.expired, k)
	h.mu.Unlock()
}

func (h *recordingHooks) ReservedKeyRejected(k string) {
	h.mu.Lock()
	h.reserved = append(h.reserved, k)
	h.mu.Unlock()
}

func (h *recordingHooks) CachePersisted(string, int, int) {
	h.mu.Lock()
	h.persisted++
	h.mu.Unlock()
}

func (h *recordingHooks) CacheLoaded(_ string, _ int, created bool) {
	h.mu.Lock()
	h.loaded = append(h.loaded, created)
	h.mu.Unlock()
}

func newTestStore(t *testing.T, md medium.Medium, clk *fakeClock, optsOpt func(*StoreOptions)) *Store {
	t.Helper()
	opts := StoreOptions{
		Medium: md,
		Now:    clk.Now,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	st, err := NewStore(opts)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func newTestCache(t *testing.T, st *Store) *Cache {
	t.Helper()
	c, err := NewCache(context.Background(), st, CacheOptions{})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c
}

func mustRaw(t *testing.T, md medium.Medium, key string) string {
	t.Helper()
	b, ok, err := md.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("raw %q: ok=%v err=%v", key, ok, err)
	}
	return string(b)
}

func mustDecodeBlob(t *testing.T, cd codec.Codec, raw []byte) map[string]codec.Entry {
	t.Helper()
	e, err := cd.DecodeEntry(raw)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	m, err := cd.DecodeEntries(e.Value)
	if err != nil {
		t.Fatalf("DecodeEntries: %v", err)
	}
	return m
}
