package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreamware/opcache/internal/keyer"
	"github.com/dreamware/opcache/internal/rowstore"
)

func newTestCoordinator(t *testing.T, cfg Config) (*Coordinator, rowstore.Store) {
	t.Helper()
	store := rowstore.NewMemoryStore()
	lockPath := filepath.Join(t.TempDir(), "cache.lock")
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = time.Second
	}
	if cfg.DeferredTimeout == 0 {
		cfg.DeferredTimeout = 30 * time.Second
	}
	return New(store, lockPath, cfg), store
}

// TestAtMostOnceUnderConcurrency checks that k concurrent callers on one key
// with an operation that never fails all receive the committed payload, and
// that the operation runs at least once and never more than once per caller
// (callers whose probe precedes the first Deferred claim may each run it;
// see the race window documented on Coordinator.fill).
func TestAtMostOnceUnderConcurrency(t *testing.T) {
	coord, _ := newTestCoordinator(t, Config{})
	const callers = 8
	var invocations int64

	op := func() ([]byte, error) {
		atomic.AddInt64(&invocations, 1)
		time.Sleep(5 * time.Millisecond)
		return []byte("result"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			payload, err := coord.Call(context.Background(), 1, []any{"shared-key"}, op)
			if err != nil {
				t.Errorf("caller %d: Call: %v", idx, err)
				return
			}
			results[idx] = payload
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt64(&invocations); got < 1 || got > callers {
		t.Errorf("invocations = %d, want between 1 and %d", got, callers)
	}
	for i, r := range results {
		if string(r) != "result" {
			t.Errorf("caller %d result = %q, want %q", i, r, "result")
		}
	}
}

// TestDeferredRecovery checks that a caller observing a stale (expired)
// Deferred completes the value itself.
func TestDeferredRecovery(t *testing.T) {
	coord, store := newTestCoordinator(t, Config{DeferredTimeout: 20 * time.Millisecond})

	// Simulate a dead caller: fill the leaf with a Deferred claim
	// timestamped well in the past, with no Materialized commit to follow.
	_, _, miss, err := keyer.Lookup(store, 1, []any{"stuck-key"})
	if err != nil || miss == nil {
		t.Fatalf("setup Lookup: miss=%v err=%v", miss, err)
	}
	staleTime := time.Now().Add(-time.Hour)
	if _, err := keyer.Fill(store, []any{"stuck-key"}, miss, staleTime); err != nil {
		t.Fatalf("setup Fill: %v", err)
	}

	var invocations int64
	op := func() ([]byte, error) {
		atomic.AddInt64(&invocations, 1)
		return []byte("recovered"), nil
	}

	payload, err := coord.Call(context.Background(), 1, []any{"stuck-key"}, op)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(payload) != "recovered" {
		t.Errorf("payload = %q, want %q", payload, "recovered")
	}
	if atomic.LoadInt64(&invocations) != 1 {
		t.Errorf("invocations = %d, want 1", invocations)
	}
}

func TestHitReturnsWithoutRunningOperation(t *testing.T) {
	coord, store := newTestCoordinator(t, Config{})
	_, err := keyer.CommitLeaf(store, 1, []any{"cached-key"}, []byte("already-there"))
	if err != nil {
		t.Fatalf("setup CommitLeaf: %v", err)
	}

	called := false
	op := func() ([]byte, error) {
		called = true
		return []byte("should-not-happen"), nil
	}

	payload, err := coord.Call(context.Background(), 1, []any{"cached-key"}, op)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(payload) != "already-there" {
		t.Errorf("payload = %q, want %q", payload, "already-there")
	}
	if called {
		t.Errorf("expected op not to run on a materialized hit")
	}
}

func TestValidationModeDetectsMismatch(t *testing.T) {
	coord, store := newTestCoordinator(t, Config{Validate: true})
	_, err := keyer.CommitLeaf(store, 1, []any{"k"}, []byte("old-value"))
	if err != nil {
		t.Fatalf("setup CommitLeaf: %v", err)
	}

	op := func() ([]byte, error) { return []byte("different-value"), nil }

	_, err = coord.Call(context.Background(), 1, []any{"k"}, op)
	if err == nil {
		t.Fatalf("expected a validation error, got nil")
	}
}

func TestOperationFailureLeavesDeferredUncommitted(t *testing.T) {
	coord, store := newTestCoordinator(t, Config{})
	attempt := 0
	failingOp := func() ([]byte, error) {
		attempt++
		return nil, os.ErrInvalid
	}

	_, err := coord.Call(context.Background(), 1, []any{"failing-key"}, failingOp)
	if err == nil {
		t.Fatalf("expected the operation's failure to propagate")
	}
	if attempt != 1 {
		t.Errorf("attempt = %d, want 1", attempt)
	}

	_, value, miss, err := keyer.Lookup(store, 1, []any{"failing-key"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected the leaf row to exist (Deferred), got a miss at depth %d", miss.Depth)
	}
	sv, err := rowstore.DecodeValue(value)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if sv.Kind != rowstore.Deferred {
		t.Errorf("leaf kind = %v, want Deferred (no commit on operation failure)", sv.Kind)
	}
}
