package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is a Codec that serializes values using fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
//
// Use deterministic=true for canonical encoding (RFC 8949 Core Deterministic)
// when you need byte-for-byte stable outputs, e.g. when comparing persisted blobs.
// Otherwise PreferredUnsortedEncOptions are used.
// Time values are encoded as RFC3339Nano for stable, human-readable timestamps.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec = CBOR{}

type cborEntry struct {
	Value  cbor.RawMessage `cbor:"value"`
	Expiry *int64          `cbor:"expiry_ms,omitempty"`
}

// NewCBOR constructs a CBOR codec.
//   - deterministic=true uses CoreDetEncOptions (RFC 8949).
//   - Otherwise uses PreferredUnsortedEncOptions (smaller/faster defaults).
func NewCBOR(deterministic bool) (CBOR, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
// Handy for package-level variables in tests.
func MustCBOR(deterministic bool) CBOR {
	c, err := NewCBOR(deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR) Marshal(v any) ([]byte, error)   { return c.enc.Marshal(v) }
func (c CBOR) Unmarshal(b []byte, v any) error { return c.dec.Unmarshal(b, v) }

func (c CBOR) EncodeEntry(e Entry) ([]byte, error) {
	return c.enc.Marshal(c.toWire(e))
}

func (c CBOR) DecodeEntry(b []byte) (Entry, error) {
	var in cborEntry
	if err := c.dec.Unmarshal(b, &in); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromCBOREntry(in)
}

func (c CBOR) EncodeEntries(m map[string]Entry) ([]byte, error) {
	out := make(map[string]cborEntry, len(m))
	for k, e := range m {
		out[k] = c.toWire(e)
	}
	return c.enc.Marshal(out)
}

func (c CBOR) DecodeEntries(b []byte) (map[string]Entry, error) {
	var in map[string]cborEntry
	if err := c.dec.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[string]Entry, len(in))
	for k, ce := range in {
		e, err := fromCBOREntry(ce)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		out[k] = e
	}
	return out, nil
}

func (c CBOR) toWire(e Entry) cborEntry {
	v := cbor.RawMessage(e.Value)
	if len(v) == 0 {
		v = cbor.RawMessage{0xf6} // null
	}
	return cborEntry{Value: v, Expiry: e.Expiry}
}

func fromCBOREntry(in cborEntry) (Entry, error) {
	if len(in.Value) == 0 {
		return Entry{}, fmt.Errorf("%w: missing value", ErrMalformed)
	}
	return Entry{Value: append([]byte(nil), in.Value...), Expiry: in.Expiry}, nil
}
