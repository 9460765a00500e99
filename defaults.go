package stash

import "time"

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// expiryFor returns the absolute expiry (Unix ms) for a write at now with the
// given ttl, or nil when ttl <= 0 (never expires). Sub-millisecond remainders
// round up so an entry never expires before now+ttl.
func expiryFor(now time.Time, ttl time.Duration) *int64 {
	if ttl <= 0 {
		return nil
	}
	at := now.Add(ttl)
	ms := at.UnixMilli()
	if at.Sub(time.UnixMilli(ms)) > 0 {
		ms++
	}
	return &ms
}

// live reports whether an entry with the given expiry is still valid at now:
// there is no expiry, or it lies strictly after now. Both Store and Cache use
// this predicate.
func live(expiry *int64, now time.Time) bool {
	return expiry == nil || time.UnixMilli(*expiry).After(now)
}
