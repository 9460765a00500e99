package codec

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a Codec that serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Msgpack is compact and fast; be mindful of struct tag differences vs JSON.
// Use `msgpack:"fieldName"` tags if you need explicit control.
// Map keys are sorted on encode so persisted blobs are stable.
type Msgpack struct{}

var _ Codec = Msgpack{}

type msgpackEntry struct {
	Value  msgpack.RawMessage `msgpack:"value"`
	Expiry *int64             `msgpack:"expiry_ms,omitempty"`
}

func (Msgpack) Marshal(v any) ([]byte, error)   { return msgpackEncode(v) }
func (Msgpack) Unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }

func (Msgpack) EncodeEntry(e Entry) ([]byte, error) { return msgpackEncode(toMsgpackEntry(e)) }

func (Msgpack) DecodeEntry(b []byte) (Entry, error) {
	var in msgpackEntry
	if err := msgpack.Unmarshal(b, &in); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromMsgpackEntry(in)
}

func (Msgpack) EncodeEntries(m map[string]Entry) ([]byte, error) {
	out := make(map[string]msgpackEntry, len(m))
	for k, e := range m {
		out[k] = toMsgpackEntry(e)
	}
	return msgpackEncode(out)
}

func (Msgpack) DecodeEntries(b []byte) (map[string]Entry, error) {
	var in map[string]msgpackEntry
	if err := msgpack.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[string]Entry, len(in))
	for k, me := range in {
		e, err := fromMsgpackEntry(me)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		out[k] = e
	}
	return out, nil
}

func msgpackEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toMsgpackEntry(e Entry) msgpackEntry {
	v := msgpack.RawMessage(e.Value)
	if len(v) == 0 {
		v = msgpack.RawMessage{0xc0} // nil
	}
	return msgpackEntry{Value: v, Expiry: e.Expiry}
}

func fromMsgpackEntry(in msgpackEntry) (Entry, error) {
	if len(in.Value) == 0 {
		return Entry{}, fmt.Errorf("%w: missing value", ErrMalformed)
	}
	return Entry{Value: append([]byte(nil), in.Value...), Expiry: in.Expiry}, nil
}
