// Package bigcache provides a volatile Medium on top of allegro/bigcache.
//
// BigCache evicts by its global LifeWindow and shard pressure, so values may
// vanish before their stash expiry. Use it when losing entries is acceptable.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/stash/medium"
)

type Medium struct {
	c *bc.BigCache
}

var _ medium.Medium = (*Medium)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Medium, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Medium{c: c}, nil
}

func (p *Medium) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Medium) Set(_ context.Context, key string, value []byte) error {
	return p.c.Set(key, value)
}

func (p *Medium) Del(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Keys drains a BigCache iterator. The iterator works on a per-shard copy of
// the index, so deletes issued after Keys returns do not disturb it.
func (p *Medium) Keys(_ context.Context) ([]string, error) {
	var out []string
	it := p.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if errors.Is(err, bc.ErrCannotRetrieveEntry) {
			continue // removed since SetNext
		}
		if err != nil {
			return nil, err
		}
		out = append(out, info.Key())
	}
	return out, nil
}

func (p *Medium) Close(_ context.Context) error {
	return p.c.Close()
}
