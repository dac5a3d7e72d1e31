// Package coordinator implements the processing coordinator: a pool of
// worker goroutines that dequeue filesystem events from the bus, enforce
// per-path serialization via the registry's gate, and drive the file
// processor.
//
// Grounded on internal/pipeline/pipeline.go's goroutine-per-stage +
// sync.WaitGroup + context.CancelFunc shutdown shape and
// internal/scheduler/scheduler.go's bounded-stop-timeout idiom (cancel,
// then select between a done-channel and a timeout context), adapted here
// to a fixed worker pool instead of a single scheduled job.
package coordinator

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/otus-labs/logwatch-agent/internal/fsevent"
	"github.com/otus-labs/logwatch-agent/internal/registry"
	"github.com/otus-labs/logwatch-agent/internal/stats"
)

// Bus is the subset of eventbus.Bus[fsevent.Event] the coordinator depends
// on, expressed as an interface per design note 9.1 so tests can drive the
// coordinator without a real bus.
type Bus interface {
	TryDequeue(timeout time.Duration) (fsevent.Event, bool)
	Stop()
}

// FileProcessor is the subset of fileprocessor.Processor the coordinator
// depends on.
type FileProcessor interface {
	ProcessOnce(path string, state *registry.FileState, buf *stats.Buffer)
}

// Coordinator owns the worker pool.
type Coordinator struct {
	bus       Bus
	registry  *registry.Registry
	processor FileProcessor
	stats     []*stats.WorkerStats

	dequeueTimeout time.Duration
	joinTimeout    time.Duration

	stopping atomic.Bool
	wg       sync.WaitGroup
}

// New returns a Coordinator with one WorkerStats per worker, indexed the
// same way the worker goroutines are (worker i writes only to stats[i]).
func New(bus Bus, reg *registry.Registry, processor FileProcessor, workers int, dequeueTimeout, joinTimeout time.Duration) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	workerStats := make([]*stats.WorkerStats, workers)
	for i := range workerStats {
		workerStats[i] = stats.New()
	}
	return &Coordinator{
		bus:            bus,
		registry:       reg,
		processor:      processor,
		stats:          workerStats,
		dequeueTimeout: dequeueTimeout,
		joinTimeout:    joinTimeout,
	}
}

// Stats returns the per-worker stats, for the reporter to drive swaps on.
func (c *Coordinator) Stats() []*stats.WorkerStats {
	return c.stats
}

// Start launches one goroutine per worker.
func (c *Coordinator) Start() {
	for i := range c.stats {
		c.wg.Add(1)
		go c.runWorker(c.stats[i])
	}
}

func (c *Coordinator) runWorker(ws *stats.WorkerStats) {
	defer c.wg.Done()
	for {
		ev, ok := c.bus.TryDequeue(c.dequeueTimeout)
		if !ok {
			ws.AckSwapIfRequested()
			if c.stopping.Load() {
				return
			}
			continue
		}

		c.route(ev, ws)
		ws.AckSwapIfRequested()
		if c.stopping.Load() {
			return
		}
	}
}

func (c *Coordinator) route(ev fsevent.Event, ws *stats.WorkerStats) {
	active := ws.Active()

	switch ev.Kind {
	case fsevent.Created:
		active.FsCreated++
		if ev.Processable {
			c.handleCreateOrModify(ev.Path, ws)
		}
	case fsevent.Modified:
		active.FsModified++
		if ev.Processable {
			c.handleCreateOrModify(ev.Path, ws)
		}
	case fsevent.Deleted:
		active.FsDeleted++
		c.handleDelete(ev.Path, ws)
	case fsevent.Renamed:
		active.FsRenamed++
		c.handleDelete(ev.OldPath, ws)
		if ev.Processable {
			c.handleCreateOrModify(ev.Path, ws)
		}
	}
}

func (c *Coordinator) handleCreateOrModify(path string, ws *stats.WorkerStats) {
	state := c.registry.GetOrCreate(path)

	if !state.Gate.TryAcquire() {
		state.MarkDirtyIfAllowed()
		ws.Active().CoalescedDueToBusyGate++
		return
	}
	defer state.Gate.Release()

	if state.IsDeletePending() {
		c.finalizeDelete(path, ws)
		return
	}

	for {
		ws.AckSwapIfRequested()

		if state.IsDeletePending() {
			c.finalizeDelete(path, ws)
			return
		}

		c.processor.ProcessOnce(path, state, ws.Active())

		ws.AckSwapIfRequested()

		if state.IsDeletePending() {
			c.finalizeDelete(path, ws)
			return
		}

		if state.IsDirty() {
			state.ClearDirty()
			continue
		}

		return
	}
}

func (c *Coordinator) finalizeDelete(path string, ws *stats.WorkerStats) {
	ws.Active().SkippedDueToDeletePending++
	c.registry.FinalizeDelete(path)
	ws.Active().FileStateRemoved++
}

func (c *Coordinator) handleDelete(path string, ws *stats.WorkerStats) {
	state, ok := c.registry.TryGet(path)
	if !ok {
		return
	}

	if !state.Gate.TryAcquire() {
		state.MarkDeletePending()
		ws.Active().DeletePendingSet++
		return
	}
	defer state.Gate.Release()

	state.MarkDeletePending()
	c.registry.FinalizeDelete(path)
	ws.Active().FileStateRemoved++
}

// Stop sets the stopping flag, stops the bus so every blocked TryDequeue
// unblocks, and joins every worker with a bounded timeout. Only the first
// call does this; a later call is a silent no-op.
func (c *Coordinator) Stop() {
	if !c.stopping.CAS(false, true) {
		return
	}
	c.bus.Stop()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.joinTimeout):
		// Workers that exceed the join timeout are left to exit on their
		// own; Go goroutines cannot be forcibly interrupted the way the
		// teacher's scheduler interrupts an OS thread, so this deadline is
		// best-effort: it lets Stop return promptly instead of hanging.
	}
}
