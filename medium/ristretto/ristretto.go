// Package ristretto provides a volatile Medium on top of dgraph-io/ristretto.
//
// Ristretto admits writes probabilistically and evicts by cost, so a Set can
// be refused (reported as medium.ErrRejected) and a stored value can disappear
// at any time. Ristretto cannot enumerate its keys, so the medium keeps its own
// key index and prunes entries Ristretto has dropped whenever Keys runs.
package ristretto

import (
	"context"
	"errors"
	"sort"
	"sync"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/stash/medium"
)

type Medium struct {
	c *rc.Cache

	mu   sync.Mutex
	keys map[string]struct{}
}

var _ medium.Medium = (*Medium)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // total bytes of values held
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Medium, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Medium{c: c, keys: make(map[string]struct{})}, nil
}

func (p *Medium) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Set waits for the write buffer to drain so a following Get observes the value.
func (p *Medium) Set(_ context.Context, key string, value []byte) error {
	cp := append([]byte(nil), value...)
	cost := int64(len(cp))
	if cost == 0 {
		cost = 1
	}
	if !p.c.Set(key, cp, cost) {
		return medium.ErrRejected
	}
	p.c.Wait()

	p.mu.Lock()
	p.keys[key] = struct{}{}
	p.mu.Unlock()
	return nil
}

func (p *Medium) Del(_ context.Context, key string) error {
	p.c.Del(key)
	p.c.Wait()

	p.mu.Lock()
	delete(p.keys, key)
	p.mu.Unlock()
	return nil
}

func (p *Medium) Keys(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.keys))
	for k := range p.keys {
		if _, ok := p.c.Get(k); !ok {
			delete(p.keys, k) // evicted or refused after admission
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (p *Medium) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics is set).
func (p *Medium) Metrics() *rc.Metrics { return p.c.Metrics }
