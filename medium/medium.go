// Package medium defines the durable key-value contract used by stash.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed so that the bytes returned by
// Get are identical to the bytes provided to Set.
//
// Expiry is not a medium concern: stash stamps absolute expiries inside the
// stored bytes and checks them on read.
package medium

import (
	"context"
	"errors"
)

// ErrRejected is returned by volatile media that refuse a write under pressure.
var ErrRejected = errors.New("medium: write rejected")

// Medium is a minimal string-keyed byte store.
// Must be safe for concurrent use.
type Medium interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Del removes a key. Removing a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Keys returns a snapshot of every key present at call time.
	// Callers may mutate the medium while ranging over the result.
	Keys(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
