package registry

import (
	"sync"
	"testing"

	"go.uber.org/atomic"
)

func TestGetOrCreateReturnsSameStateForSamePath(t *testing.T) {
	r := New()
	a := r.GetOrCreate("a.log")
	b := r.GetOrCreate("a.log")
	if a != b {
		t.Fatalf("GetOrCreate returned distinct states for the same path")
	}
}

func TestGetOrCreateFreshStateIsZeroed(t *testing.T) {
	r := New()
	s := r.GetOrCreate("a.log")
	if s.Offset != 0 || len(s.Carry) != 0 || s.IsDirty() || s.IsDeletePending() {
		t.Fatalf("fresh state not zeroed: %+v", s)
	}
}

func TestTryGetMissingPath(t *testing.T) {
	r := New()
	if _, ok := r.TryGet("missing"); ok {
		t.Fatalf("TryGet found a path that was never created")
	}
}

func TestFinalizeDeleteRemovesStateAndBumpsEpoch(t *testing.T) {
	r := New()
	first := r.GetOrCreate("a.log")
	if !first.Gate.TryAcquire() {
		t.Fatalf("expected to acquire gate")
	}
	r.FinalizeDelete("a.log")
	first.Gate.Release()

	if _, ok := r.TryGet("a.log"); ok {
		t.Fatalf("state still present after FinalizeDelete")
	}

	second := r.GetOrCreate("a.log")
	if second.Generation() <= first.Generation() {
		t.Fatalf("generation did not strictly increase: first=%d second=%d",
			first.Generation(), second.Generation())
	}
	if second.Offset != 0 || len(second.Carry) != 0 || second.IsDirty() || second.IsDeletePending() {
		t.Fatalf("recreated state not fresh: %+v", second)
	}
}

func TestDeletePendingForcesAndOverridesDirty(t *testing.T) {
	s := &FileState{}
	s.MarkDirtyIfAllowed()
	if !s.IsDirty() {
		t.Fatalf("expected dirty to be set")
	}
	s.MarkDeletePending()
	if s.IsDirty() {
		t.Fatalf("delete_pending must force dirty false")
	}
	s.MarkDirtyIfAllowed()
	if s.IsDirty() {
		t.Fatalf("dirty must not be settable once delete_pending is set")
	}
}

func TestGateTryAcquireIsSingleHolder(t *testing.T) {
	var g gate
	if !g.TryAcquire() {
		t.Fatalf("first TryAcquire should succeed")
	}
	if g.TryAcquire() {
		t.Fatalf("second concurrent TryAcquire should fail while held")
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("TryAcquire should succeed again after Release")
	}
}

func TestGateConcurrentAcquireAtMostOneWinner(t *testing.T) {
	var g gate
	const n = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if g.TryAcquire() {
				wins.Inc()
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", wins.Load())
	}
}

func TestRegistryConcurrentGetOrCreateSamePath(t *testing.T) {
	r := New()
	const n = 100
	results := make([]*FileState, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = r.GetOrCreate("shared.log")
		}()
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("concurrent GetOrCreate produced distinct states")
		}
	}
}
