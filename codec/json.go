package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// JSON is the default codec. Entries are encoded as
//
//	{"value": <json>, "expiry": <unix seconds>}
//
// with "expiry" omitted entirely when the entry never expires. Expiry keeps
// millisecond precision as a fractional number (1700000001.6).
// The zero value is ready to use.
type JSON struct{}

var _ Codec = JSON{}

type jsonEntry struct {
	Value  json.RawMessage `json:"value"`
	Expiry json.Number     `json:"expiry,omitempty"`
}

// jsonEntryIn reads expiry as a float; anything finer than a millisecond is rounded.
type jsonEntryIn struct {
	Value  json.RawMessage `json:"value"`
	Expiry *float64        `json:"expiry"`
}

func (JSON) Marshal(v any) ([]byte, error)       { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, v any) error     { return json.Unmarshal(b, v) }
func (JSON) EncodeEntry(e Entry) ([]byte, error) { return json.Marshal(toJSONEntry(e)) }

func (JSON) DecodeEntry(b []byte) (Entry, error) {
	var in jsonEntryIn
	if err := json.Unmarshal(b, &in); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromJSONEntry(in)
}

func (JSON) EncodeEntries(m map[string]Entry) ([]byte, error) {
	out := make(map[string]jsonEntry, len(m))
	for k, e := range m {
		out[k] = toJSONEntry(e)
	}
	return json.Marshal(out)
}

func (JSON) DecodeEntries(b []byte) (map[string]Entry, error) {
	var in map[string]jsonEntryIn
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[string]Entry, len(in))
	for k, je := range in {
		e, err := fromJSONEntry(je)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		out[k] = e
	}
	return out, nil
}

func toJSONEntry(e Entry) jsonEntry {
	v := json.RawMessage(e.Value)
	if len(v) == 0 {
		v = json.RawMessage("null")
	}
	out := jsonEntry{Value: v}
	if e.Expiry != nil {
		out.Expiry = unixSeconds(*e.Expiry)
	}
	return out
}

// unixSeconds renders ms as seconds, fractional only when needed.
func unixSeconds(ms int64) json.Number {
	return json.Number(strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64))
}

func fromJSONEntry(in jsonEntryIn) (Entry, error) {
	// a missing "value" member leaves the raw message nil; an explicit null does not
	if in.Value == nil {
		return Entry{}, fmt.Errorf("%w: missing value", ErrMalformed)
	}
	e := Entry{Value: bytes.Clone(in.Value)}
	if in.Expiry != nil {
		ms := int64(math.Round(*in.Expiry * 1000))
		e.Expiry = &ms
	}
	return e, nil
}
