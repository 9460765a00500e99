// Package memory provides an in-process Medium backed by a map.
// Nothing survives the process; it is the default medium for tests and for
// callers that only want the in-memory cache semantics.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/unkn0wn-root/stash/medium"
)

type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

var _ medium.Medium = (*Memory)(nil)

func New() *Memory { return &Memory{m: make(map[string][]byte)} }

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte) error {
	cp := append([]byte(nil), value...)
	s.mu.Lock()
	s.m[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *Memory) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Keys returns the keys in ascending order.
func (s *Memory) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func (s *Memory) Close(_ context.Context) error { return nil }

// Len reports the number of stored keys.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
