package stash

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/medium"
)

// Store keeps one encoded entry per key in a Medium. Expiry is stamped into
// the entry on write and checked on every read; expired entries read as
// misses but stay in the medium until overwritten or deleted.
type Store struct {
	medium medium.Medium
	codec  codec.Codec
	log    Logger
	hooks  Hooks
	now    func() time.Time
	ns     string

	mu       sync.RWMutex
	reserved map[string]struct{}
}

var (
	_ Getter = (*Store)(nil)
	_ Setter = (*Store)(nil)
)

// NewStore returns a Store over opts.Medium, filling unset options with defaults.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Medium == nil {
		return nil, ErrNilMedium
	}
	s := &Store{
		medium:   opts.Medium,
		ns:       opts.Namespace,
		now:      opts.Now,
		reserved: make(map[string]struct{}),
	}

	// defaults
	s.codec = coalesce[codec.Codec](opts.Codec, codec.JSON{})
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Close closes the medium.
func (s *Store) Close(ctx context.Context) error {
	return s.medium.Close(ctx)
}

// Get decodes the live entry under key into dst and reports whether one was found.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	e, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := s.decodeValue(key, e.Value, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set encodes value and writes it under key, replacing any previous entry.
// The old entry is deleted before the new one is written so no trace of its
// shape survives. A ttl > 0 stamps expiry = now + ttl (millisecond precision, rounded up).
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := s.checkReserved(key); err != nil {
		return err
	}
	payload, err := s.codec.Marshal(value)
	if err != nil {
		return s.rejected(key, err)
	}
	return s.write(ctx, key, codec.Entry{Value: payload, Expiry: expiryFor(s.now(), ttl)})
}

// Has reports whether key holds a live entry.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.load(ctx, key)
	return ok, err
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.checkReserved(key); err != nil {
		return err
	}
	return s.del(ctx, key)
}

// Clear removes every key in the store's namespace (the whole medium when no
// namespace is set), including keys reserved by caches. The key list is
// taken before the first delete.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.mediumKeys(ctx)
	if err != nil {
		return err
	}
	for _, mk := range keys {
		if err := s.medium.Del(ctx, mk); err != nil {
			return fmt.Errorf("stash: clear %q: %w", mk, err)
		}
	}
	s.log.Debug("store cleared", Fields{"ns": s.ns, "keys": len(keys)})
	return nil
}

// Keys lists user keys present in the store, expired ones included.
// Keys reserved by caches are omitted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.mediumKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, mk := range keys {
		k := s.userKey(mk)
		if s.isReserved(k) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// load fetches and decodes the entry under key. Expired entries are misses.
func (s *Store) load(ctx context.Context, key string) (codec.Entry, bool, error) {
	raw, ok, err := s.medium.Get(ctx, s.mediumKey(key))
	if err != nil {
		return codec.Entry{}, false, fmt.Errorf("stash: get %q: %w", key, err)
	}
	if !ok {
		return codec.Entry{}, false, nil
	}
	e, err := s.codec.DecodeEntry(raw)
	if err != nil {
		return codec.Entry{}, false, s.corrupt(key, err)
	}
	if !live(e.Expiry, s.now()) {
		s.hooks.ExpiredRead(key)
		return codec.Entry{}, false, nil
	}
	return e, true, nil
}

func (s *Store) write(ctx context.Context, key string, e codec.Entry) error {
	raw, err := s.codec.EncodeEntry(e)
	if err != nil {
		return s.rejected(key, err)
	}
	if err := s.del(ctx, key); err != nil {
		return err
	}
	if err := s.medium.Set(ctx, s.mediumKey(key), raw); err != nil {
		return fmt.Errorf("stash: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) del(ctx context.Context, key string) error {
	if err := s.medium.Del(ctx, s.mediumKey(key)); err != nil {
		return fmt.Errorf("stash: delete %q: %w", key, err)
	}
	return nil
}

// mediumKeys snapshots the medium keys that belong to this store.
func (s *Store) mediumKeys(ctx context.Context) ([]string, error) {
	keys, err := s.medium.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("stash: list keys: %w", err)
	}
	if s.ns == "" {
		return keys, nil
	}
	prefix := s.ns + ":"
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) mediumKey(key string) string {
	// isolate by namespace
	if s.ns == "" {
		return key
	}
	return s.ns + ":" + key
}

func (s *Store) userKey(mediumKey string) string {
	if s.ns == "" {
		return mediumKey
	}
	return strings.TrimPrefix(mediumKey, s.ns+":")
}

// Reserve makes key read-only through Set and Delete and hides it from Keys.
func (s *Store) Reserve(key string) {
	s.mu.Lock()
	s.reserved[key] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) isReserved(key string) bool {
	s.mu.RLock()
	_, ok := s.reserved[key]
	s.mu.RUnlock()
	return ok
}

func (s *Store) checkReserved(key string) error {
	if !s.isReserved(key) {
		return nil
	}
	s.hooks.ReservedKeyRejected(key)
	return fmt.Errorf("%w: %q", ErrReservedKey, key)
}

// decodeValue unmarshals an entry payload into dst. A dst the codec cannot
// decode into at all is the caller's mistake, not a corrupt entry.
func (s *Store) decodeValue(key string, b []byte, dst any) error {
	err := s.codec.Unmarshal(b, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, codec.ErrNotProto):
		return fmt.Errorf("stash: decode %q: %w", key, err)
	default:
		return s.corrupt(key, err)
	}
}

func (s *Store) corrupt(key string, err error) error {
	s.log.Warn("corrupt entry", Fields{"key": key, "err": err})
	s.hooks.CorruptEntry(key, err)
	return &CorruptEntryError{Key: key, Err: err}
}

func (s *Store) rejected(key string, err error) error {
	s.log.Debug("value rejected by codec", Fields{"key": key, "err": err})
	s.hooks.SerializationRejected(key, err)
	return &SerializationError{Key: key, Err: err}
}
