package ristretto

import (
	"context"
	"testing"

	"github.com/unkn0wn-root/stash/medium"
	"github.com/unkn0wn-root/stash/medium/mediumtest"
)

func newTestMedium(t *testing.T) *Medium {
	t.Helper()
	m, err := New(Config{NumCounters: 10_000, MaxCost: 1 << 20, BufferItems: 64, Metrics: true})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestRistrettoContract(t *testing.T) {
	mediumtest.Run(t, func(t *testing.T) medium.Medium { return newTestMedium(t) })
}

func TestRistrettoInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for zero config")
	}
}

func TestRistrettoKeysPrunesDroppedEntries(t *testing.T) {
	ctx := context.Background()
	m := newTestMedium(t)
	_ = m.Set(ctx, "a", []byte("1"))
	_ = m.Set(ctx, "b", []byte("2"))

	// drop "a" behind the index's back, as an eviction would
	m.c.Del("a")
	m.c.Wait()

	keys, err := m.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("Keys = %v", keys)
	}
	if _, ok := m.keys["a"]; ok {
		t.Fatalf("index still holds pruned key")
	}
}

func TestRistrettoMetrics(t *testing.T) {
	ctx := context.Background()
	m := newTestMedium(t)
	_ = m.Set(ctx, "k", []byte("v"))
	_, _, _ = m.Get(ctx, "k")
	_, _, _ = m.Get(ctx, "missing")

	met := m.Metrics()
	if met == nil {
		t.Fatalf("Metrics nil with Config.Metrics set")
	}
	if met.Hits() < 1 || met.Misses() < 1 {
		t.Fatalf("hits=%d misses=%d", met.Hits(), met.Misses())
	}
}
