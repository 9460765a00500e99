package codec

import "fmt"

// Limit wraps another codec to enforce a maximum allowed input size
// at decode time. Encoding is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// Typical use: protect against oversized inputs coming from a shared medium
// such as Redis.
type Limit struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec
	// MaxDecode is the maximum permitted length (in bytes) of any input to
	// Unmarshal, DecodeEntry or DecodeEntries. Larger inputs fail without
	// invoking Inner.
	MaxDecode int
}

var _ Codec = Limit{}

func (c Limit) Marshal(v any) ([]byte, error)                    { return c.Inner.Marshal(v) }
func (c Limit) EncodeEntry(e Entry) ([]byte, error)              { return c.Inner.EncodeEntry(e) }
func (c Limit) EncodeEntries(m map[string]Entry) ([]byte, error) { return c.Inner.EncodeEntries(m) }

func (c Limit) Unmarshal(b []byte, v any) error {
	if err := c.check(b); err != nil {
		return err
	}
	return c.Inner.Unmarshal(b, v)
}

func (c Limit) DecodeEntry(b []byte) (Entry, error) {
	if err := c.check(b); err != nil {
		return Entry{}, err
	}
	return c.Inner.DecodeEntry(b)
}

func (c Limit) DecodeEntries(b []byte) (map[string]Entry, error) {
	if err := c.check(b); err != nil {
		return nil, err
	}
	return c.Inner.DecodeEntries(b)
}

func (c Limit) check(b []byte) error {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		return fmt.Errorf("%w: payload too large: %d > %d", ErrMalformed, len(b), c.MaxDecode)
	}
	return nil
}
