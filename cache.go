package stash

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/stash/codec"
)

// Cache holds a key -> entry mapping in memory and persists the whole mapping
// through a Store under one reserved key after every mutation. Reads never
// touch the Store.
//
// A Cache is safe for concurrent use. Separate Cache instances over the same
// Store key do not see each other's writes; whichever persists last wins.
//
// A mutation whose persist fails is undone in memory and its error returned.
// The old blob is deleted before the new one is written, so after such a
// failure the medium holds no blob until the next successful mutation.
type Cache struct {
	store *Store
	key   string

	mu      sync.RWMutex
	entries map[string]codec.Entry
}

var (
	_ Getter = (*Cache)(nil)
	_ Setter = (*Cache)(nil)
)

// NewCache reserves opts.Key on store and loads the mapping persisted there.
// When nothing is persisted yet an empty mapping is written immediately, so
// the key exists once any Cache has been constructed over it.
func NewCache(ctx context.Context, store *Store, opts CacheOptions) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	c := &Cache{
		store: store,
		key:   coalesce(opts.Key, DefaultCacheKey),
	}
	store.Reserve(c.key)

	entries, ok, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		entries = make(map[string]codec.Entry)
		if err := c.persist(ctx, entries); err != nil {
			return nil, err
		}
	}
	c.entries = entries
	c.store.hooks.CacheLoaded(c.key, len(entries), !ok)
	return c, nil
}

// Key returns the store key the mapping is persisted under.
func (c *Cache) Key() string { return c.key }

// Get decodes the live in-memory entry under key into dst and reports whether one was found.
func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	e, ok := c.lookup(key)
	if !ok {
		return false, nil
	}
	if err := c.store.decodeValue(key, e.Value, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key, then persists the whole mapping. A ttl > 0
// stamps expiry = now + ttl (millisecond precision, rounded up). If persisting fails
// the in-memory mapping is left as it was and the medium lacks the blob until the
// next successful mutation.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := c.store.codec.Marshal(value)
	if err != nil {
		return c.store.rejected(key, err)
	}
	e := codec.Entry{Value: payload, Expiry: expiryFor(c.store.now(), ttl)}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.entries[key]
	c.entries[key] = e
	if err := c.persist(ctx, c.entries); err != nil {
		c.restore(key, prev, had)
		return err
	}
	return nil
}

// Has reports whether key holds a live entry.
func (c *Cache) Has(_ context.Context, key string) (bool, error) {
	_, ok := c.lookup(key)
	return ok, nil
}

// Delete removes key and persists the mapping.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.entries[key]
	delete(c.entries, key)
	if err := c.persist(ctx, c.entries); err != nil {
		c.restore(key, prev, had)
		return err
	}
	return nil
}

// Clear empties the mapping and persists it.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	empty := make(map[string]codec.Entry)
	if err := c.persist(ctx, empty); err != nil {
		return err
	}
	c.entries = empty
	return nil
}

// Len returns the number of entries held, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the keys of live entries in ascending order.
func (c *Cache) Keys() []string {
	now := c.store.now()
	c.mu.RLock()
	out := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if live(e.Expiry, now) {
			out = append(out, k)
		}
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Reload replaces the in-memory mapping with the one currently persisted.
// It is the way to observe writes made by another Cache over the same key;
// local changes that were overwritten there are lost.
func (c *Cache) Reload(ctx context.Context) error {
	entries, ok, err := c.read(ctx)
	if err != nil {
		return err
	}
	if !ok {
		entries = make(map[string]codec.Entry)
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	c.store.hooks.CacheLoaded(c.key, len(entries), false)
	return nil
}

// Sweep drops expired entries and persists the mapping once if anything was
// dropped. It returns the number of entries removed.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	now := c.store.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make(map[string]codec.Entry, len(c.entries))
	for k, e := range c.entries {
		if live(e.Expiry, now) {
			kept[k] = e
		}
	}
	removed := len(c.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := c.persist(ctx, kept); err != nil {
		return 0, err
	}
	c.entries = kept
	c.store.log.Debug("cache swept", Fields{"key": c.key, "removed": removed})
	return removed, nil
}

func (c *Cache) lookup(key string) (codec.Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return codec.Entry{}, false
	}
	if !live(e.Expiry, c.store.now()) {
		c.store.hooks.ExpiredRead(key)
		return codec.Entry{}, false
	}
	return e, true
}

// read loads the persisted mapping. ok is false when nothing is stored.
func (c *Cache) read(ctx context.Context) (map[string]codec.Entry, bool, error) {
	e, ok, err := c.store.load(ctx, c.key)
	if err != nil || !ok {
		return nil, false, err
	}
	entries, err := c.store.codec.DecodeEntries(e.Value)
	if err != nil {
		return nil, false, c.store.corrupt(c.key, err)
	}
	if entries == nil {
		entries = make(map[string]codec.Entry)
	}
	return entries, true, nil
}

// persist writes the full mapping. Callers hold c.mu (or own entries exclusively).
func (c *Cache) persist(ctx context.Context, entries map[string]codec.Entry) error {
	payload, err := c.store.codec.EncodeEntries(entries)
	if err != nil {
		return c.store.rejected(c.key, err)
	}
	if err := c.store.write(ctx, c.key, codec.Entry{Value: payload}); err != nil {
		c.store.log.Error("cache persist failed", Fields{"key": c.key, "err": err})
		return err
	}
	c.store.log.Debug("cache persisted", Fields{"key": c.key, "entries": len(entries), "bytes": len(payload)})
	c.store.hooks.CachePersisted(c.key, len(entries), len(payload))
	return nil
}

func (c *Cache) restore(key string, prev codec.Entry, had bool) {
	if had {
		c.entries[key] = prev
	} else {
		delete(c.entries, key)
	}
}
