// Package reporter implements the periodic reporter: on each tick it
// requests a swap from every worker, merges their inactive buffers into a
// snapshot, computes top-K and percentiles, and prints a report frame.
//
// Grounded on internal/scheduler/scheduler.go's ticker-driven loop and
// bounded-stop-timeout idiom, adapted from a single scheduled job to a
// fan-out-then-merge reporting pass.
package reporter

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/otus-labs/logwatch-agent/internal/log"
	"github.com/otus-labs/logwatch-agent/internal/metrics"
	"github.com/otus-labs/logwatch-agent/internal/stats"
)

// WorkerSwapper is the subset of stats.WorkerStats the reporter drives.
type WorkerSwapper interface {
	RequestSwap()
	WaitForSwapAck(timeout time.Duration) bool
	InactiveBuffer() *stats.Buffer
}

// Bus is the subset of eventbus.Bus the reporter reads counters from.
type Bus interface {
	Published() int64
	Dropped() int64
	Depth() int
}

// Config controls reporting cadence and derived-output width.
type Config struct {
	Interval      time.Duration
	TopK          int
	AckTimeout    time.Duration
	MetricsExport bool
}

// Reporter owns the ticker, the snapshot, and the memory-stats baseline
// used to compute per-interval allocation/GC deltas.
type Reporter struct {
	workers []WorkerSwapper
	bus     Bus
	out     io.Writer
	cfg     Config

	snapshot  stats.Snapshot
	lastTicks time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	lastMemStats runtime.MemStats
}

// New returns a Reporter that reads from workers and bus and writes report
// frames to out.
func New(workers []WorkerSwapper, bus Bus, out io.Writer, cfg Config) *Reporter {
	r := &Reporter{
		workers: workers,
		bus:     bus,
		out:     out,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	r.snapshot.MessageCounts = make(map[string]uint32)
	runtime.ReadMemStats(&r.lastMemStats)
	return r
}

// Start begins the periodic reporting loop in a background goroutine.
func (r *Reporter) Start() {
	r.lastTicks = time.Now()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.tick()
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop ends the reporting loop and, best-effort, prints a final frame with
// the elapsed field set to zero. Idempotent.
func (r *Reporter) Stop() {
	r.once.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
		r.finalFrame()
	})
}

func (r *Reporter) tick() {
	now := time.Now()
	elapsed := now.Sub(r.lastTicks)
	r.lastTicks = now
	r.runInterval(elapsed)
}

func (r *Reporter) finalFrame() {
	// Best-effort: workers have already been joined by the time Stop is
	// called in the shutdown sequence, so the inactive buffers the final
	// frame reads reflect whatever was merged on the last completed tick.
	r.runInterval(0)
}

func (r *Reporter) runInterval(elapsed time.Duration) {
	var wg sync.WaitGroup
	for _, w := range r.workers {
		w.RequestSwap()
	}
	acked := make([]bool, len(r.workers))
	wg.Add(len(r.workers))
	for i, w := range r.workers {
		i, w := i, w
		go func() {
			defer wg.Done()
			acked[i] = w.WaitForSwapAck(r.cfg.AckTimeout)
		}()
	}
	wg.Wait()

	r.snapshot.ResetForNextMerge()
	ackTimeouts := 0
	for i, w := range r.workers {
		if !acked[i] {
			ackTimeouts++
			log.GetLogger().WithField("worker", i).Warn("swap ack timed out; merging best-effort data")
		}
		r.snapshot.MergeWorker(w.InactiveBuffer())
	}
	r.snapshot.BusPublished = r.bus.Published()
	r.snapshot.BusDropped = r.bus.Dropped()
	r.snapshot.BusDepth = r.bus.Depth()

	r.snapshot.ComputeDerived(r.cfg.TopK)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	allocDelta := int64(memStats.TotalAlloc) - int64(r.lastMemStats.TotalAlloc)
	gcDelta := int64(memStats.NumGC) - int64(r.lastMemStats.NumGC)
	r.lastMemStats = memStats

	if r.cfg.MetricsExport {
		metrics.Record(&r.snapshot, ackTimeouts, elapsed.Seconds())
	}

	frame := Frame{
		ReportedAt:     time.Now().UTC(),
		ElapsedSeconds: elapsed.Seconds(),
		Snapshot:       &r.snapshot,
		AllocDelta:     allocDelta,
		GCDelta:        gcDelta,
	}
	fmt.Fprint(r.out, Format(frame))
}

// Startup prints the configuration summary line emitted once at process
// start, before the first reporting interval.
func Startup(out io.Writer, watchDir string, workers, queueCapacity, topK int, interval time.Duration) {
	fmt.Fprintf(out, "logwatch-agent starting: watch_dir=%s workers=%d queue_capacity=%d topk=%d report_interval=%s\n",
		watchDir, workers, queueCapacity, topK, interval)
}
