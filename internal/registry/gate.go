package registry

import "go.uber.org/atomic"

// gate is a single-holder, non-blocking mutual-exclusion token. Unlike
// sync.Mutex, TryAcquire never blocks: a busy gate returns false immediately
// so the coordinator can fall back to marking the path dirty instead of
// waiting behind a slow worker.
type gate struct {
	held atomic.Bool
}

// TryAcquire attempts to become the sole holder. It returns false without
// waiting if another goroutine already holds the gate.
func (g *gate) TryAcquire() bool {
	return g.held.CAS(false, true)
}

// Release frees the gate. Callers must only call this while holding it.
func (g *gate) Release() {
	g.held.Store(false)
}
