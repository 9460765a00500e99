package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/stash/medium"
	"github.com/unkn0wn-root/stash/medium/mediumtest"
)

func newTestMedium(t *testing.T) *Medium {
	t.Helper()
	m, err := New(Config{LifeWindow: 10 * time.Minute, MaxEntriesInWindow: 1024, MaxEntrySize: 256})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestBigCacheContract(t *testing.T) {
	mediumtest.Run(t, func(t *testing.T) medium.Medium { return newTestMedium(t) })
}

func TestBigCacheKeysSurviveOverwrite(t *testing.T) {
	ctx := context.Background()
	m := newTestMedium(t)
	for i := 0; i < 3; i++ {
		_ = m.Set(ctx, "k", []byte{byte(i)})
	}
	keys, err := m.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "k" {
		t.Fatalf("Keys = %v", keys)
	}
}
