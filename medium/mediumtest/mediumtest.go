// Package mediumtest holds the behavior every medium.Medium implementation
// is expected to share. Implementations call Run from their own tests.
package mediumtest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/unkn0wn-root/stash/medium"
)

// Factory returns a fresh, empty medium. Cleanup is the factory's job.
type Factory func(t *testing.T) medium.Medium

// Run exercises the medium contract against media built by newMedium.
func Run(t *testing.T, newMedium Factory) {
	t.Helper()
	t.Run("Miss", func(t *testing.T) { testMiss(t, newMedium(t)) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newMedium(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, newMedium(t)) })
	t.Run("CallerBuffersNotRetained", func(t *testing.T) { testCallerBuffers(t, newMedium(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newMedium(t)) })
	t.Run("KeysSnapshot", func(t *testing.T) { testKeysSnapshot(t, newMedium(t)) })
	t.Run("Concurrent", func(t *testing.T) { testConcurrent(t, newMedium(t)) })
}

func mustSet(t *testing.T, m medium.Medium, key string, v []byte) {
	t.Helper()
	if err := m.Set(context.Background(), key, v); err != nil {
		t.Fatalf("Set(%q) error: %v", key, err)
	}
}

func mustGet(t *testing.T, m medium.Medium, key string) []byte {
	t.Helper()
	b, ok, err := m.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) error: %v", key, err)
	}
	if !ok {
		t.Fatalf("Get(%q): expected hit", key)
	}
	return b
}

func mustKeys(t *testing.T, m medium.Medium) []string {
	t.Helper()
	keys, err := m.Keys(context.Background())
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	sort.Strings(keys)
	return keys
}

func testMiss(t *testing.T, m medium.Medium) {
	b, ok, err := m.Get(context.Background(), "absent")
	if err != nil || ok || b != nil {
		t.Fatalf("miss: b=%q ok=%v err=%v", b, ok, err)
	}
	if keys := mustKeys(t, m); len(keys) != 0 {
		t.Fatalf("fresh medium has keys: %v", keys)
	}
}

func testRoundTrip(t *testing.T, m medium.Medium) {
	values := map[string][]byte{
		"text":   []byte(`{"value":42}`),
		"binary": {0x00, 0xff, 0x10, 0x00, 0xc0},
		"a:b:c":  []byte("namespaced"),
	}
	for k, v := range values {
		mustSet(t, m, k, v)
	}
	for k, want := range values {
		if got := mustGet(t, m, k); !bytes.Equal(got, want) {
			t.Fatalf("Get(%q) = %x want %x", k, got, want)
		}
	}
}

func testOverwrite(t *testing.T, m medium.Medium) {
	mustSet(t, m, "k", []byte("a much longer first value"))
	mustSet(t, m, "k", []byte("short"))
	if got := mustGet(t, m, "k"); string(got) != "short" {
		t.Fatalf("overwrite left %q", got)
	}
}

func testCallerBuffers(t *testing.T, m medium.Medium) {
	in := []byte("original")
	mustSet(t, m, "k", in)
	copy(in, "XXXXXXXX")
	if got := mustGet(t, m, "k"); string(got) != "original" {
		t.Fatalf("medium retained caller's Set buffer: %q", got)
	}

	out := mustGet(t, m, "k")
	copy(out, "YYYYYYYY")
	if got := mustGet(t, m, "k"); string(got) != "original" {
		t.Fatalf("medium exposed its storage through Get: %q", got)
	}
}

func testDelete(t *testing.T, m medium.Medium) {
	ctx := context.Background()
	mustSet(t, m, "k", []byte("v"))
	if err := m.Del(ctx, "k"); err != nil {
		t.Fatalf("Del error: %v", err)
	}
	if _, ok, err := m.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("after Del: ok=%v err=%v", ok, err)
	}
	if err := m.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of a missing key must not fail: %v", err)
	}
}

func testKeysSnapshot(t *testing.T, m medium.Medium) {
	ctx := context.Background()
	for _, k := range []string{"c", "a", "b"} {
		mustSet(t, m, k, []byte(k))
	}
	keys := mustKeys(t, m)
	if fmt.Sprint(keys) != "[a b c]" {
		t.Fatalf("Keys = %v", keys)
	}
	// deleting while ranging over the snapshot
	for _, k := range keys {
		if err := m.Del(ctx, k); err != nil {
			t.Fatalf("Del(%q) error: %v", k, err)
		}
	}
	if keys := mustKeys(t, m); len(keys) != 0 {
		t.Fatalf("keys left after deleting snapshot: %v", keys)
	}
}

func testConcurrent(t *testing.T, m medium.Medium) {
	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ctx := context.Background()
			for i := 0; i < perWorker; i++ {
				k := fmt.Sprintf("w%d-%d", w, i)
				if err := m.Set(ctx, k, []byte(k)); err != nil {
					errs <- err
					return
				}
				if _, _, err := m.Get(ctx, k); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent access: %v", err)
	}
	if n := len(mustKeys(t, m)); n != workers*perWorker {
		t.Fatalf("Keys after concurrent writes = %d want %d", n, workers*perWorker)
	}
}
