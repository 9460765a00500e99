package codec

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func allCodecs() map[string]Codec {
	return map[string]Codec{
		"json":     JSON{},
		"cbor":     MustCBOR(true),
		"msgpack":  Msgpack{},
		"protobuf": Protobuf{},
		"limit":    Limit{Inner: JSON{}, MaxDecode: 1 << 10},
	}
}

func mustEncodeEntry(t *testing.T, c Codec, e Entry) []byte {
	t.Helper()
	b, err := c.EncodeEntry(e)
	if err != nil {
		t.Fatalf("EncodeEntry error: %v", err)
	}
	return b
}

func TestEntryRoundTrip(t *testing.T) {
	for name, c := range allCodecs() {
		cases := []Entry{
			{Value: []byte("x")},
			{Value: []byte("payload"), Expiry: ExpiryAt(1_700_000_060)},
			{Value: []byte("neg"), Expiry: ExpiryAt(-5)},
		}
		if name == "json" || name == "limit" {
			// JSON envelopes embed the payload, so it must itself be JSON.
			cases = []Entry{
				{Value: []byte(`"x"`)},
				{Value: []byte(`{"a":1}`), Expiry: ExpiryAt(1_700_000_060)},
				{Value: []byte(`[1,2]`), Expiry: ExpiryAt(-5)},
			}
		}
		if name == "cbor" {
			cases = []Entry{
				{Value: []byte{0x61, 'x'}},
				{Value: []byte{0x18, 42}, Expiry: ExpiryAt(1_700_000_060)},
				{Value: []byte{0xf5}, Expiry: ExpiryAt(-5)},
			}
		}
		if name == "msgpack" {
			cases = []Entry{
				{Value: []byte{0xa1, 'x'}},
				{Value: []byte{0x2a}, Expiry: ExpiryAt(1_700_000_060)},
				{Value: []byte{0xc3}, Expiry: ExpiryAt(-5)},
			}
		}
		for _, want := range cases {
			got, err := c.DecodeEntry(mustEncodeEntry(t, c, want))
			if err != nil {
				t.Fatalf("%s: DecodeEntry error: %v", name, err)
			}
			if !bytes.Equal(got.Value, want.Value) {
				t.Fatalf("%s: value mismatch: got %x want %x", name, got.Value, want.Value)
			}
			if !reflect.DeepEqual(got.Expiry, want.Expiry) {
				t.Fatalf("%s: expiry mismatch: got %v want %v", name, got.Expiry, want.Expiry)
			}
		}
	}
}

func TestJSONEnvelopeShape(t *testing.T) {
	c := JSON{}
	if got := string(mustEncodeEntry(t, c, Entry{Value: []byte(`42`)})); got != `{"value":42}` {
		t.Fatalf("no expiry: %s", got)
	}
	if got := string(mustEncodeEntry(t, c, Entry{Value: []byte(`"s"`), Expiry: ExpiryAt(60)})); got != `{"value":"s","expiry":60}` {
		t.Fatalf("with expiry: %s", got)
	}
	if got := string(mustEncodeEntry(t, c, Entry{})); got != `{"value":null}` {
		t.Fatalf("empty value: %s", got)
	}
}

func TestJSONExpiryKeepsMilliseconds(t *testing.T) {
	c := JSON{}
	if got := string(mustEncodeEntry(t, c, Entry{Value: []byte(`1`), Expiry: ExpiryAtMilli(1_700_000_001_600)})); got != `{"value":1,"expiry":1700000001.6}` {
		t.Fatalf("encoded: %s", got)
	}

	e, err := c.DecodeEntry([]byte(`{"value":1,"expiry":1700000000.9}`))
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	if e.Expiry == nil || *e.Expiry != 1_700_000_000_900 {
		t.Fatalf("expiry = %v", e.Expiry)
	}
}

func TestJSONNullValueIsNotMissing(t *testing.T) {
	e, err := JSON{}.DecodeEntry([]byte(`{"value":null}`))
	if err != nil {
		t.Fatalf("explicit null should decode: %v", err)
	}
	if string(e.Value) != "null" {
		t.Fatalf("value = %q", e.Value)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	// protobuf: a length running past the buffer, then an expiry without a value
	inputs := map[string][][]byte{
		"json":     {[]byte("garbage"), []byte(`[1,2,3]`), []byte(`{"expiry":1}`)},
		"cbor":     {{0xff, 0x00}, {0xa1, 0x66, 'e', 'x', 'p', 'i', 'r', 'y', 0x01}},
		"msgpack":  {{0xc1}, {0x81, 0xa6, 'e', 'x', 'p', 'i', 'r', 'y', 0x01}},
		"protobuf": {{0x0a, 0x05, 'a'}, {0x10, 0x01}},
	}
	codecs := allCodecs()
	for name, bad := range inputs {
		for _, b := range bad {
			if _, err := codecs[name].DecodeEntry(b); !errors.Is(err, ErrMalformed) {
				t.Fatalf("%s: DecodeEntry(%x): want ErrMalformed, got %v", name, b, err)
			}
		}
	}
}

func TestEntriesRoundTrip(t *testing.T) {
	for name, c := range allCodecs() {
		val, err := c.Marshal("v")
		if name == "protobuf" {
			val, err = c.Marshal(wrapperspb.String("v"))
		}
		if err != nil {
			t.Fatalf("%s: Marshal error: %v", name, err)
		}
		want := map[string]Entry{
			"a": {Value: val},
			"b": {Value: val, Expiry: ExpiryAt(99)},
		}
		b, err := c.EncodeEntries(want)
		if err != nil {
			t.Fatalf("%s: EncodeEntries error: %v", name, err)
		}
		got, err := c.DecodeEntries(b)
		if err != nil {
			t.Fatalf("%s: DecodeEntries error: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: entries mismatch: got %v want %v", name, got, want)
		}

		empty, err := c.EncodeEntries(map[string]Entry{})
		if err != nil {
			t.Fatalf("%s: EncodeEntries(empty) error: %v", name, err)
		}
		if m, err := c.DecodeEntries(empty); err != nil || len(m) != 0 {
			t.Fatalf("%s: empty mapping: m=%v err=%v", name, m, err)
		}
	}
}

func TestEntriesEncodingIsStable(t *testing.T) {
	m := map[string]Entry{}
	for _, k := range []string{"q", "a", "z", "m", "b"} {
		m[k] = Entry{Value: []byte(`1`)}
	}
	for name, c := range map[string]Codec{"json": JSON{}, "cbor": MustCBOR(true), "msgpack": Msgpack{}, "protobuf": Protobuf{}} {
		first, err := c.EncodeEntries(m)
		if err != nil {
			t.Fatalf("%s: EncodeEntries error: %v", name, err)
		}
		for i := 0; i < 10; i++ {
			again, _ := c.EncodeEntries(m)
			if !bytes.Equal(first, again) {
				t.Fatalf("%s: encoding not stable", name)
			}
		}
	}
}

func TestProtobufRequiresMessages(t *testing.T) {
	c := Protobuf{}
	if _, err := c.Marshal("plain"); !errors.Is(err, ErrNotProto) {
		t.Fatalf("Marshal: want ErrNotProto, got %v", err)
	}
	var s string
	if err := c.Unmarshal([]byte{}, &s); !errors.Is(err, ErrNotProto) {
		t.Fatalf("Unmarshal: want ErrNotProto, got %v", err)
	}

	b, err := c.Marshal(wrapperspb.Int64(7))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	out := &wrapperspb.Int64Value{}
	if err := c.Unmarshal(b, out); err != nil || out.GetValue() != 7 {
		t.Fatalf("Unmarshal: v=%d err=%v", out.GetValue(), err)
	}

	// a pointer to a nil message pointer gets a fresh message
	var pm *wrapperspb.Int64Value
	if err := c.Unmarshal(b, &pm); err != nil || pm.GetValue() != 7 {
		t.Fatalf("Unmarshal(**T): v=%v err=%v", pm, err)
	}
	existing := &wrapperspb.Int64Value{}
	keep := existing
	if err := c.Unmarshal(b, &existing); err != nil || existing != keep || keep.GetValue() != 7 {
		t.Fatalf("Unmarshal(**T) must reuse a non-nil message: err=%v", err)
	}
	var ps *string
	if err := c.Unmarshal(b, &ps); !errors.Is(err, ErrNotProto) || ps != nil {
		t.Fatalf("Unmarshal(**string): want ErrNotProto and no allocation, got %v", err)
	}
}

func TestProtobufSkipsUnknownFields(t *testing.T) {
	b := mustEncodeEntry(t, Protobuf{}, Entry{Value: []byte("v"), Expiry: ExpiryAt(3)})
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "future field")

	e, err := Protobuf{}.DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	if string(e.Value) != "v" || e.Expiry == nil || *e.Expiry != 3000 {
		t.Fatalf("entry = %q/%v", e.Value, e.Expiry)
	}
}

func TestLimitRejectsOversizedInput(t *testing.T) {
	c := Limit{Inner: JSON{}, MaxDecode: 16}
	big := []byte(`{"value":"` + strings.Repeat("x", 32) + `"}`)

	if _, err := c.DecodeEntry(big); !errors.Is(err, ErrMalformed) {
		t.Fatalf("DecodeEntry: want ErrMalformed, got %v", err)
	}
	if _, err := c.DecodeEntries(big); !errors.Is(err, ErrMalformed) {
		t.Fatalf("DecodeEntries: want ErrMalformed, got %v", err)
	}
	var s string
	if err := c.Unmarshal(big, &s); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Unmarshal: want ErrMalformed, got %v", err)
	}

	// encoding is not limited
	if _, err := c.EncodeEntry(Entry{Value: big}); err != nil {
		t.Fatalf("EncodeEntry error: %v", err)
	}

	off := Limit{Inner: JSON{}}
	if _, err := off.DecodeEntry(big); err != nil {
		t.Fatalf("MaxDecode=0 must disable the limit: %v", err)
	}
}
