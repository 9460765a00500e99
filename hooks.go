package stash

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Store and Cache call them inline.
type Hooks interface {
	// A stored entry (or a cached payload) failed to decode; the read returned an error.
	CorruptEntry(key string, err error)

	// A value could not be encoded; nothing was written.
	SerializationRejected(key string, err error)

	// A read found an entry past its expiry and reported a miss.
	ExpiredRead(key string)

	// A public Store write targeted a key reserved by a Cache.
	ReservedKeyRejected(key string)

	// A cache mapping was written under storageKey.
	CachePersisted(storageKey string, entries, bytes int)

	// A cache mapping was loaded. created is true when none existed yet.
	CacheLoaded(storageKey string, entries int, created bool)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CorruptEntry(string, error)          {}
func (NopHooks) SerializationRejected(string, error) {}
func (NopHooks) ExpiredRead(string)                  {}
func (NopHooks) ReservedKeyRejected(string)          {}
func (NopHooks) CachePersisted(string, int, int)     {}
func (NopHooks) CacheLoaded(string, int, bool)       {}
