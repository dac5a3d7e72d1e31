// Package registry implements the per-path FileState and the
// FileStateRegistry that owns it: offset, carry buffer, non-blocking gate,
// dirty/delete-pending flags, and the per-path epoch counter.
//
// Grounded on the teacher's map-with-mutex flow registries
// (sync.RWMutex-guarded map[string]*T plus a generation counter per key);
// adapted here to a filesystem path key and the dirty/delete-pending flag
// pair the log-tailing coordinator needs instead of a flow's packet
// counters.
package registry

import (
	"sync"

	"go.uber.org/atomic"
)

// FileState is the per-path mutable state the coordinator and file
// processor operate on. Offset and Carry are mutated only while the caller
// holds Gate; Dirty and DeletePending are plain atomics settable without it.
//
// FileState never references the registry that owns it (design note 9.1):
// removal from the registry's map does not invalidate a reference already
// held by a worker inside the gate, since nothing here points back.
type FileState struct {
	Gate gate

	// Offset is the next byte to read from the file. Monotonically
	// non-decreasing except when a truncation resets it to 0.
	Offset uint64
	// Carry holds a partial trailing line from the previous read.
	Carry []byte

	dirty         atomic.Bool
	deletePending atomic.Bool
	generation    uint32
}

// Generation returns the epoch+1 snapshot this state was created with. Used
// only for debugging and assertions, per the data model.
func (s *FileState) Generation() uint32 {
	return s.generation
}

// MarkDirtyIfAllowed sets Dirty unless DeletePending has already been set,
// which forces Dirty false and overrides any further mark attempts.
func (s *FileState) MarkDirtyIfAllowed() {
	if s.deletePending.Load() {
		return
	}
	s.dirty.Store(true)
}

// IsDirty reports whether a coalesced event is pending reprocessing.
func (s *FileState) IsDirty() bool {
	return s.dirty.Load()
}

// ClearDirty clears the dirty flag. Callers must hold the gate.
func (s *FileState) ClearDirty() {
	s.dirty.Store(false)
}

// MarkDeletePending sets the monotonic delete-pending flag and forces dirty
// false. Once set it never reverts to false.
func (s *FileState) MarkDeletePending() {
	s.deletePending.Store(true)
	s.dirty.Store(false)
}

// IsDeletePending reports whether a Deleted observation has been recorded
// for this path.
func (s *FileState) IsDeletePending() bool {
	return s.deletePending.Load()
}

// Registry maps filesystem paths to their FileState, plus a monotonic
// per-path epoch used to stamp Generation on every newly created state.
type Registry struct {
	mu     sync.RWMutex
	states map[string]*FileState
	epochs map[string]uint32
}

// New returns an empty, ready-to-use Registry.
func New() *Registry {
	return &Registry{
		states: make(map[string]*FileState),
		epochs: make(map[string]uint32),
	}
}

// GetOrCreate returns the existing state for path, or atomically creates a
// fresh one: offset 0, empty carry, flags cleared, generation set to the
// current epoch for path plus one.
func (r *Registry) GetOrCreate(path string) *FileState {
	r.mu.RLock()
	if s, ok := r.states[path]; ok {
		r.mu.RUnlock()
		return s
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[path]; ok {
		return s
	}
	s := &FileState{generation: r.epochs[path] + 1}
	r.states[path] = s
	return s
}

// TryGet returns the current state for path, if one exists, without
// creating it.
func (r *Registry) TryGet(path string) (*FileState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[path]
	return s, ok
}

// FinalizeDelete removes the state for path and bumps its epoch by one.
// Must be called only while the caller holds the state's gate; the worker's
// own reference to the removed FileState keeps it alive for the remainder
// of its scoped gate acquisition since FileState carries no back-reference
// to the registry.
func (r *Registry) FinalizeDelete(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, path)
	r.epochs[path]++
}

// Len returns the number of live paths tracked. Exposed for tests and
// diagnostics only.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
