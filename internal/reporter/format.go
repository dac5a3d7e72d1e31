package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/otus-labs/logwatch-agent/internal/histogram"
	"github.com/otus-labs/logwatch-agent/internal/stats"
)

// Frame is everything one stdout report block needs, already computed:
// nothing in Format does clock reads, merges, or derivation.
type Frame struct {
	ReportedAt     time.Time
	ElapsedSeconds float64
	Snapshot       *stats.Snapshot
	AllocDelta     int64
	GCDelta        int64
}

// Format renders frame as the deterministic, invariant-locale multi-line
// block described in the stdout format contract: UTC timestamp, elapsed
// seconds, per-kind fs counts, line totals, rates, top-K, percentiles, and
// bus counters.
func Format(frame Frame) string {
	s := frame.Snapshot

	var b strings.Builder
	fmt.Fprintf(&b, "--- report @ %s (elapsed=%.2fs) ---\n",
		frame.ReportedAt.Format("2006-01-02T15:04:05.000Z"), frame.ElapsedSeconds)

	fsTotal := s.FsCreated + s.FsModified + s.FsDeleted + s.FsRenamed
	fmt.Fprintf(&b, "fs_events: created=%d modified=%d deleted=%d renamed=%d total=%d rate=%s/s\n",
		s.FsCreated, s.FsModified, s.FsDeleted, s.FsRenamed, fsTotal, rate(fsTotal, frame.ElapsedSeconds))

	fmt.Fprintf(&b, "lines: processed=%d malformed=%d rate=%s/s\n",
		s.LinesProcessed, s.MalformedLines, rate(s.LinesProcessed, frame.ElapsedSeconds))

	fmt.Fprintf(&b, "levels:")
	for i, name := range stats.LevelNames {
		fmt.Fprintf(&b, " %s=%d", name, s.LevelCounts[i])
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "io: file_not_found=%d access_denied=%d io_error=%d truncated_reset=%d\n",
		s.FileNotFound, s.AccessDenied, s.IoException, s.TruncationReset)

	fmt.Fprintf(&b, "gate: coalesced=%d delete_pending_set=%d skipped_due_to_delete_pending=%d file_state_removed=%d\n",
		s.CoalescedDueToBusyGate, s.DeletePendingSet, s.SkippedDueToDeletePending, s.FileStateRemoved)

	b.WriteString("top_k:\n")
	if len(s.TopK) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, e := range s.TopK {
		fmt.Fprintf(&b, "  %s: %d\n", e.Key, e.Count)
	}

	fmt.Fprintf(&b, "latency_ms: p50=%s p95=%s p99=%s\n",
		formatPercentile(s.P50), formatPercentile(s.P95), formatPercentile(s.P99))

	fmt.Fprintf(&b, "bus: published=%d dropped=%d depth=%d\n", s.BusPublished, s.BusDropped, s.BusDepth)

	fmt.Fprintf(&b, "mem: alloc_delta=%d gc_delta=%d\n", frame.AllocDelta, frame.GCDelta)

	return b.String()
}

// rate formats total/elapsed as a rate-per-second, never producing NaN or
// Inf on a zero-elapsed interval: a zero-length interval (the final shutdown
// frame always has elapsed=0) reports a rate of 0.00, not a missing value.
func rate(total uint64, elapsedSeconds float64) string {
	if elapsedSeconds <= 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(total)/elapsedSeconds)
}

// formatPercentile renders a nullable percentile bin: "n/a" if the
// histogram had no observations, ">10000" for the overflow bin, or the bin
// index itself otherwise.
func formatPercentile(p histogram.Percentile) string {
	if !p.Valid {
		return "n/a"
	}
	if p.Bin == histogram.OverflowBin {
		return ">10000"
	}
	return fmt.Sprintf("%d", p.Bin)
}
