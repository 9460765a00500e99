// Package codec turns values and stored entries into bytes and back.
//
// A Codec has two jobs: encoding caller values into payloads (Marshal/Unmarshal)
// and framing those payloads into entries that carry an optional expiry
// (EncodeEntry/DecodeEntry, EncodeEntries/DecodeEntries). Payloads produced by
// one codec are only meaningful to the same codec.
package codec

import "errors"

// ErrMalformed reports bytes that do not decode into an entry.
var ErrMalformed = errors.New("codec: malformed entry")

// Entry is a stored value plus an optional absolute expiry.
// Value holds the payload already encoded by the codec. Expiry is in Unix
// milliseconds; nil means the entry never expires.
type Entry struct {
	Value  []byte
	Expiry *int64
}

// Codec encodes values and the entry envelopes around them.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error

	EncodeEntry(e Entry) ([]byte, error)
	DecodeEntry(b []byte) (Entry, error)

	// EncodeEntries encodes a whole key -> entry mapping as one payload.
	EncodeEntries(m map[string]Entry) ([]byte, error)
	DecodeEntries(b []byte) (map[string]Entry, error)
}

// ExpiryAt returns the Entry.Expiry for a whole Unix second.
func ExpiryAt(sec int64) *int64 { return ExpiryAtMilli(sec * 1000) }

// ExpiryAtMilli returns the Entry.Expiry for a Unix millisecond.
func ExpiryAtMilli(ms int64) *int64 { return &ms }
