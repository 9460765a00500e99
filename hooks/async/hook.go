// usage:
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{
//	    ExpiredEvery: 10, // sample logs: ~every 10th expired read
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	st, _ := stash.NewStore(stash.StoreOptions{
//	    Medium: medium,
//	    Hooks:  hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/stash"
)

// Hooks forwards events to inner on background workers.
// Events that do not fit in the queue are dropped and counted.
type Hooks struct {
	inner   stash.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ stash.Hooks = (*Hooks)(nil)

func New(inner stash.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting events and waits for queued ones to run.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close: sending on the closed queue panics
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) ExpiredRead(k string)           { h.try(func() { h.inner.ExpiredRead(k) }) }
func (h *Hooks) ReservedKeyRejected(k string)   { h.try(func() { h.inner.ReservedKeyRejected(k) }) }
func (h *Hooks) CorruptEntry(k string, e error) { h.try(func() { h.inner.CorruptEntry(k, e) }) }
func (h *Hooks) SerializationRejected(k string, err error) {
	h.try(func() { h.inner.SerializationRejected(k, err) })
}
func (h *Hooks) CachePersisted(k string, n, b int) {
	h.try(func() { h.inner.CachePersisted(k, n, b) })
}
func (h *Hooks) CacheLoaded(k string, n int, created bool) {
	h.try(func() { h.inner.CacheLoaded(k, n, created) })
}
