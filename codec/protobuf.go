package codec

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// ErrNotProto is returned when Protobuf is asked to (de)serialize a value
// that is not a proto.Message.
var ErrNotProto = errors.New("codec: value is not a proto.Message")

// Protobuf encodes values with proto.Marshal. Values must be proto.Message
// (for Unmarshal: a non-nil pointer to a message, or a pointer to a message
// pointer, which is allocated when nil). The zero value is ready to use.
//
// Envelope layout:
//
//	Entry:   1: bytes value | 2: sint64 expiry, Unix ms (omitted when absent)
//	Entries: 1: repeated { 1: string key | 2: Entry }, ordered by key
type Protobuf struct{}

var _ Codec = Protobuf{}

const (
	fieldValue  protowire.Number = 1
	fieldExpiry protowire.Number = 2

	fieldItem     protowire.Number = 1
	fieldItemKey  protowire.Number = 1
	fieldItemBody protowire.Number = 2
)

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotProto, v)
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(m)
}

func (Protobuf) Unmarshal(b []byte, v any) error {
	m, ok := v.(proto.Message)
	if !ok {
		if m, ok = allocMessage(v); !ok {
			return fmt.Errorf("%w: %T", ErrNotProto, v)
		}
	}
	return proto.Unmarshal(b, m)
}

// allocMessage resolves v of type **T, where *T is a message, allocating *v
// when it is nil. Generic callers holding a V = *T end up here with &v.
func allocMessage(v any) (proto.Message, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, false
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Pointer || !elem.Type().Implements(messageType) {
		return nil, false
	}
	if elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	return elem.Interface().(proto.Message), true
}

var messageType = reflect.TypeOf((*proto.Message)(nil)).Elem()

func (Protobuf) EncodeEntry(e Entry) ([]byte, error) {
	return appendProtoEntry(nil, e), nil
}

func (Protobuf) DecodeEntry(b []byte) (Entry, error) {
	return consumeProtoEntry(b)
}

func (Protobuf) EncodeEntries(m map[string]Entry) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []byte
	for _, k := range keys {
		var item []byte
		item = protowire.AppendTag(item, fieldItemKey, protowire.BytesType)
		item = protowire.AppendString(item, k)
		item = protowire.AppendTag(item, fieldItemBody, protowire.BytesType)
		item = protowire.AppendBytes(item, appendProtoEntry(nil, m[k]))

		out = protowire.AppendTag(out, fieldItem, protowire.BytesType)
		out = protowire.AppendBytes(out, item)
	}
	return out, nil
}

func (Protobuf) DecodeEntries(b []byte) (map[string]Entry, error) {
	out := make(map[string]Entry)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformedProto(n)
		}
		b = b[n:]
		if num != fieldItem || typ != protowire.BytesType {
			if n = protowire.ConsumeFieldValue(num, typ, b); n < 0 {
				return nil, malformedProto(n)
			}
			b = b[n:]
			continue
		}
		item, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, malformedProto(n)
		}
		b = b[n:]

		k, e, err := consumeProtoItem(item)
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

func appendProtoEntry(b []byte, e Entry) []byte {
	b = protowire.AppendTag(b, fieldValue, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Value)
	if e.Expiry != nil {
		b = protowire.AppendTag(b, fieldExpiry, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(*e.Expiry))
	}
	return b
}

func consumeProtoEntry(b []byte) (Entry, error) {
	var (
		e        Entry
		hasValue bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Entry{}, malformedProto(n)
		}
		b = b[n:]
		switch {
		case num == fieldValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Entry{}, malformedProto(n)
			}
			e.Value = append([]byte{}, v...)
			hasValue = true
			b = b[n:]
		case num == fieldExpiry && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Entry{}, malformedProto(n)
			}
			ms := protowire.DecodeZigZag(v)
			e.Expiry = &ms
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Entry{}, malformedProto(n)
			}
			b = b[n:]
		}
	}
	if !hasValue {
		return Entry{}, fmt.Errorf("%w: missing value", ErrMalformed)
	}
	return e, nil
}

func consumeProtoItem(b []byte) (string, Entry, error) {
	var (
		key     string
		body    []byte
		hasKey  bool
		hasBody bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", Entry{}, malformedProto(n)
		}
		b = b[n:]
		switch {
		case num == fieldItemKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", Entry{}, malformedProto(n)
			}
			key, hasKey = v, true
			b = b[n:]
		case num == fieldItemBody && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", Entry{}, malformedProto(n)
			}
			body, hasBody = v, true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", Entry{}, malformedProto(n)
			}
			b = b[n:]
		}
	}
	if !hasKey || !hasBody {
		return "", Entry{}, fmt.Errorf("%w: incomplete item", ErrMalformed)
	}
	e, err := consumeProtoEntry(body)
	if err != nil {
		return "", Entry{}, fmt.Errorf("entry %q: %w", key, err)
	}
	return key, e, nil
}

func malformedProto(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}
