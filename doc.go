// Package stash implements a small key-value store with optional TTL expiry on
// top of a pluggable durable medium, plus an in-memory cache layer that keeps
// its whole working set in one persisted blob.
//
// Components:
//   - Medium: string-keyed byte store (in-process map, bbolt, Redis, BigCache, Ristretto).
//   - Codec: (de)serializes values and the {value, expiry} envelope around them.
//   - Store: one medium key per entry; stamps absolute expiry on write, checks it on read.
//   - Cache: map of entries held in memory and re-persisted in full through a Store
//     under a reserved key (default "cache-store") after every mutation.
//
// Entries:
//
//	{"value": <payload>, "expiry": <unix seconds>}  // expiry omitted => never expires
//
// An entry is live while expiry > now. Expired entries read as misses and are
// left in place until overwritten, deleted or swept.
//
// Misses are not errors: Get reports (false, nil) and GetOr returns the caller's
// placeholder. Undecodable data is reported as ErrCorruptEntry and values that
// cannot be encoded as ErrSerializationRejected.
//
// Typical use:
//
//	st, _ := stash.NewStore(stash.StoreOptions{Medium: memory.New()})
//	c, _ := stash.NewCache(ctx, st, stash.CacheOptions{})
//	_, _ = stash.Put(ctx, c, "user:1", user, time.Minute)
//	u, _ := stash.GetOr(ctx, c, "user:1", User{})
//
// Two Cache instances over the same medium do not see each other's writes;
// the last one to persist wins. Call Reload to pick up the persisted state.
package stash
