package coordinator

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/otus-labs/logwatch-agent/internal/fsevent"
	"github.com/otus-labs/logwatch-agent/internal/registry"
	"github.com/otus-labs/logwatch-agent/internal/stats"
)

// fakeBus is an in-memory, unbounded FIFO standing in for eventbus.Bus in
// tests, per design note 9.1's interface-only-dependency guidance.
type fakeBus struct {
	mu      sync.Mutex
	items   []fsevent.Event
	stopped bool
}

func (b *fakeBus) Push(ev fsevent.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, ev)
}

func (b *fakeBus) TryDequeue(timeout time.Duration) (fsevent.Event, bool) {
	deadline := time.Now().Add(timeout)
	for {
		b.mu.Lock()
		if len(b.items) > 0 {
			ev := b.items[0]
			b.items = b.items[1:]
			b.mu.Unlock()
			return ev, true
		}
		stopped := b.stopped
		b.mu.Unlock()
		if stopped || time.Now().After(deadline) {
			return fsevent.Event{}, false
		}
		time.Sleep(time.Millisecond)
	}
}

func (b *fakeBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

// countingProcessor records how many times ProcessOnce ran per path and how
// many were concurrent, to verify the gate's mutual-exclusion invariant.
type countingProcessor struct {
	mu          sync.Mutex
	calls       map[string]int
	inFlight    map[string]*int32
	maxInFlight int32
}

func newCountingProcessor() *countingProcessor {
	return &countingProcessor{calls: make(map[string]int), inFlight: make(map[string]*int32)}
}

func (p *countingProcessor) ProcessOnce(path string, state *registry.FileState, buf *stats.Buffer) {
	p.mu.Lock()
	if p.inFlight[path] == nil {
		var z int32
		p.inFlight[path] = &z
	}
	counter := p.inFlight[path]
	p.calls[path]++
	p.mu.Unlock()

	n := atomic.AddInt32(counter, 1)
	if n > atomic.LoadInt32(&p.maxInFlight) {
		atomic.StoreInt32(&p.maxInFlight, n)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(counter, -1)

	buf.LinesProcessed++
}

func (p *countingProcessor) callCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

func TestHandleCreateOrModifyRunsProcessOnce(t *testing.T) {
	bus := &fakeBus{}
	reg := registry.New()
	proc := newCountingProcessor()
	c := New(bus, reg, proc, 1, 5*time.Millisecond, time.Second)

	bus.Push(fsevent.Event{Kind: fsevent.Created, Path: "a.log", Processable: true})
	c.Start()
	waitUntil(t, func() bool { return proc.callCount("a.log") >= 1 })
	c.Stop()
}

func TestAtMostOneWorkerProcessesAGivenPathAtOnce(t *testing.T) {
	bus := &fakeBus{}
	reg := registry.New()
	proc := newCountingProcessor()
	c := New(bus, reg, proc, 4, 5*time.Millisecond, time.Second)

	for i := 0; i < 20; i++ {
		bus.Push(fsevent.Event{Kind: fsevent.Modified, Path: "a.log", Processable: true})
	}
	c.Start()
	waitUntil(t, func() bool { return proc.callCount("a.log") >= 1 })
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	if atomic.LoadInt32(&proc.maxInFlight) > 1 {
		t.Fatalf("observed concurrent ProcessOnce calls for the same path: maxInFlight=%d", proc.maxInFlight)
	}
}

func TestNonProcessableEventOnlyCountsFsCounter(t *testing.T) {
	bus := &fakeBus{}
	reg := registry.New()
	proc := newCountingProcessor()
	c := New(bus, reg, proc, 1, 5*time.Millisecond, time.Second)

	bus.Push(fsevent.Event{Kind: fsevent.Modified, Path: "a.bin", Processable: false})
	c.Start()
	waitUntil(t, func() bool { return c.Stats()[0].Active().FsModified > 0 })
	c.Stop()

	if proc.callCount("a.bin") != 0 {
		t.Fatalf("ProcessOnce should not run for non-processable events")
	}
	if c.Stats()[0].Active().FsModified != 1 {
		t.Fatalf("fs_modified counter = %d, want 1", c.Stats()[0].Active().FsModified)
	}
}

func TestModifyThenDeleteRaceLeavesNoRegistryEntry(t *testing.T) {
	bus := &fakeBus{}
	reg := registry.New()
	proc := newCountingProcessor()
	c := New(bus, reg, proc, 2, 5*time.Millisecond, time.Second)

	bus.Push(fsevent.Event{Kind: fsevent.Modified, Path: "b.log", Processable: true})
	bus.Push(fsevent.Event{Kind: fsevent.Deleted, Path: "b.log"})

	c.Start()
	waitUntil(t, func() bool {
		_, ok := reg.TryGet("b.log")
		return !ok
	})
	c.Stop()

	if _, ok := reg.TryGet("b.log"); ok {
		t.Fatalf("registry should contain no entry for a deleted path")
	}
}

func TestRenamedRoutesDeleteOldThenCreateNew(t *testing.T) {
	bus := &fakeBus{}
	reg := registry.New()
	proc := newCountingProcessor()
	c := New(bus, reg, proc, 1, 5*time.Millisecond, time.Second)

	reg.GetOrCreate("old.log")
	bus.Push(fsevent.Event{Kind: fsevent.Renamed, OldPath: "old.log", Path: "new.log", Processable: true})

	c.Start()
	waitUntil(t, func() bool { return proc.callCount("new.log") >= 1 })
	c.Stop()

	if _, ok := reg.TryGet("old.log"); ok {
		t.Fatalf("old path should have been removed from the registry")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	bus := &fakeBus{}
	reg := registry.New()
	proc := newCountingProcessor()
	c := New(bus, reg, proc, 1, 5*time.Millisecond, time.Second)
	c.Start()
	c.Stop()
	c.Stop() // must not hang or panic
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
