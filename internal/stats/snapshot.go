package stats

import (
	"github.com/otus-labs/logwatch-agent/internal/histogram"
	"github.com/otus-labs/logwatch-agent/internal/topk"
)

// LevelNames is LevelCounts' index-to-label mapping, in the same order
// levelIndex assigns slots.
var LevelNames = [levelCount]string{"Info", "Warn", "Error", "Debug", "Other"}

// Snapshot is the reporter-owned merge target for one reporting interval: a
// sum of every worker's inactive buffer, plus derived outputs computed only
// after every worker has been merged in.
type Snapshot struct {
	Buffer

	BusPublished int64
	BusDropped   int64
	BusDepth     int

	TopK        []topk.Entry
	P50         histogram.Percentile
	P95         histogram.Percentile
	P99         histogram.Percentile
}

// ResetForNextMerge clears the snapshot so a fresh interval's worker buffers
// can be merged into it. The configured top-K width is supplied later, to
// ComputeDerived, once every worker has been merged in.
func (s *Snapshot) ResetForNextMerge() {
	s.Buffer.Reset()
	s.BusPublished = 0
	s.BusDropped = 0
	s.BusDepth = 0
	s.TopK = nil
	s.P50 = histogram.Percentile{}
	s.P95 = histogram.Percentile{}
	s.P99 = histogram.Percentile{}
}

// MergeWorker folds one worker's inactive buffer into the snapshot: scalars
// sum, level arrays add elementwise, message_counts accumulate, and the
// histogram merges elementwise.
func (s *Snapshot) MergeWorker(b *Buffer) {
	s.FsCreated += b.FsCreated
	s.FsModified += b.FsModified
	s.FsDeleted += b.FsDeleted
	s.FsRenamed += b.FsRenamed
	s.LinesProcessed += b.LinesProcessed
	s.MalformedLines += b.MalformedLines
	s.CoalescedDueToBusyGate += b.CoalescedDueToBusyGate
	s.DeletePendingSet += b.DeletePendingSet
	s.SkippedDueToDeletePending += b.SkippedDueToDeletePending
	s.FileStateRemoved += b.FileStateRemoved
	s.FileNotFound += b.FileNotFound
	s.AccessDenied += b.AccessDenied
	s.IoException += b.IoException
	s.TruncationReset += b.TruncationReset

	for i := range s.LevelCounts {
		s.LevelCounts[i] += b.LevelCounts[i]
	}
	for k, v := range b.MessageCounts {
		s.MessageCounts[k] += v
	}
	s.Histogram.MergeFrom(&b.Histogram)
}

// ComputeDerived fills TopK and the p50/p95/p99 fields from the counters
// merged so far. Must be called after every worker has been merged in for
// the interval.
func (s *Snapshot) ComputeDerived(k int) {
	s.TopK = topk.Compute(s.MessageCounts, k)
	s.P50 = percentileOf(&s.Histogram, 0.50)
	s.P95 = percentileOf(&s.Histogram, 0.95)
	s.P99 = percentileOf(&s.Histogram, 0.99)
}

func percentileOf(h *histogram.Histogram, p float64) histogram.Percentile {
	bin, ok := h.PercentileRank(p)
	if !ok {
		return histogram.Percentile{}
	}
	return histogram.Percentile{Bin: bin, Valid: true}
}
