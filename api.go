package stash

import (
	"context"
	"time"

	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/medium"
)

// DefaultCacheKey is the store key a Cache persists its mapping under unless
// CacheOptions.Key says otherwise. Do not use it as a user key on the same Store.
const DefaultCacheKey = "cache-store"

// Getter is implemented by *Store and *Cache.
// Get decodes the live value under key into dst and reports whether it was found.
// Absent and expired keys report (false, nil) and leave dst untouched.
type Getter interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
}

// Setter is implemented by *Store and *Cache.
// A ttl <= 0 stores the value without expiry.
type Setter interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// StoreOptions configure a Store. Only Medium is required.
type StoreOptions struct {
	// Required
	Medium medium.Medium

	Codec     codec.Codec      // nil => codec.JSON{}
	Namespace string           // optional; medium keys become "<ns>:<key>" and Keys/Clear stay inside it
	Logger    Logger           // if nil, NopLogger is used
	Hooks     Hooks            // if nil, NopHooks is used
	Now       func() time.Time // clock for expiry stamping and checks; nil => time.Now
}

// CacheOptions configure a Cache. The zero value is usable.
type CacheOptions struct {
	Key string // store key holding the mapping; "" => DefaultCacheKey
}

// GetOr returns the value under key, or placeholder when the key is absent or
// expired. The value is decoded into a fresh V, so V = any yields the loosely
// typed stored value and a struct V keeps only the fields it declares.
func GetOr[V any](ctx context.Context, g Getter, key string, placeholder V) (V, error) {
	var v V
	ok, err := g.Get(ctx, key, &v)
	if err != nil || !ok {
		return placeholder, err
	}
	return v, nil
}

// GetShaped is GetOr with a shape-filtered copy: the stored value is decoded
// onto the instance returned by shape. Only fields declared by V (as named by
// the codec's struct tags) are copied, unknown stored fields are dropped, and
// fields the stored value lacks keep the defaults set by shape.
func GetShaped[V any](ctx context.Context, g Getter, key string, placeholder V, shape func() V) (V, error) {
	v := shape()
	ok, err := g.Get(ctx, key, &v)
	if err != nil || !ok {
		return placeholder, err
	}
	return v, nil
}

// Put stores value under key and returns it unchanged.
func Put[V any](ctx context.Context, s Setter, key string, value V, ttl time.Duration) (V, error) {
	if err := s.Set(ctx, key, value, ttl); err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}
