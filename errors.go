package stash

import (
	"errors"
	"fmt"
)

var (
	ErrCorruptEntry          = errors.New("stash: corrupt entry")
	ErrSerializationRejected = errors.New("stash: value cannot be serialized")
	ErrReservedKey           = errors.New("stash: key is reserved")
	ErrNilMedium             = errors.New("stash: medium is required")
	ErrNilStore              = errors.New("stash: store is required")
)

// CorruptEntryError reports stored bytes that could not be decoded into an
// entry, or an entry payload that could not be decoded into the caller's value.
// It matches ErrCorruptEntry and the underlying decode error.
type CorruptEntryError struct {
	Key string
	Err error
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("stash: corrupt entry %q: %v", e.Key, e.Err)
}

func (e *CorruptEntryError) Unwrap() []error {
	return []error{ErrCorruptEntry, e.Err}
}

// SerializationError reports a value the codec refused to encode.
// Nothing is written when it is returned.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("stash: cannot serialize %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() []error {
	return []error{ErrSerializationRejected, e.Err}
}
