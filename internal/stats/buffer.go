// Package stats implements the single-writer WorkerStatsBuffer, the
// double-buffered WorkerStats pair with its reporter-driven swap protocol,
// and the reporter-owned GlobalSnapshot merge target.
//
// Grounded on neehar-mavuduru-logger-double-buffer's sharded_double_buffer.go
// atomic-pointer-swap idiom, adapted from a write-side double buffer (flush
// triggers) to a read-side one: here the reporter, not the writer, drives
// the swap, and the writer only ever acknowledges it at a handful of
// documented safe points.
package stats

import (
	"github.com/otus-labs/logwatch-agent/internal/histogram"
	"github.com/otus-labs/logwatch-agent/internal/parser"
)

// Buffer is a single-writer accumulator for one worker's observations
// between swaps. Only the owning worker ever mutates a Buffer while it is
// active; the reporter only ever reads one after it has become inactive and
// been acknowledged.
type Buffer struct {
	FsCreated                 uint64
	FsModified                uint64
	FsDeleted                 uint64
	FsRenamed                 uint64
	LinesProcessed            uint64
	MalformedLines            uint64
	CoalescedDueToBusyGate    uint64
	DeletePendingSet          uint64
	SkippedDueToDeletePending uint64
	FileStateRemoved          uint64
	FileNotFound              uint64
	AccessDenied              uint64
	IoException               uint64
	TruncationReset           uint64

	LevelCounts [levelCount]uint64

	MessageCounts map[string]uint32

	Histogram histogram.Histogram
}

// levelCount is the number of LogLevel values the level_counts array is
// indexed by: Info, Warn, Error, Debug, Other.
const levelCount = 5

// NewBuffer returns a ready-to-use, zeroed Buffer.
func NewBuffer() *Buffer {
	return &Buffer{MessageCounts: make(map[string]uint32)}
}

// Reset zeros every counter, the level array, and the histogram, without
// discarding the message_counts map's backing storage — the map is cleared
// key-by-key so its capacity survives across reporter intervals.
func (b *Buffer) Reset() {
	b.FsCreated = 0
	b.FsModified = 0
	b.FsDeleted = 0
	b.FsRenamed = 0
	b.LinesProcessed = 0
	b.MalformedLines = 0
	b.CoalescedDueToBusyGate = 0
	b.DeletePendingSet = 0
	b.SkippedDueToDeletePending = 0
	b.FileStateRemoved = 0
	b.FileNotFound = 0
	b.AccessDenied = 0
	b.IoException = 0
	b.TruncationReset = 0
	for i := range b.LevelCounts {
		b.LevelCounts[i] = 0
	}
	for k := range b.MessageCounts {
		delete(b.MessageCounts, k)
	}
	b.Histogram.Reset()
}

// levelIndex maps a parser.Level to its slot in LevelCounts.
func levelIndex(l parser.Level) int {
	switch l {
	case parser.Info:
		return 0
	case parser.Warn:
		return 1
	case parser.Error:
		return 2
	case parser.Debug:
		return 3
	default:
		return 4
	}
}

// AddLine records one successfully parsed line: its level, its message key,
// and — if present — its latency observation.
func (b *Buffer) AddLine(l parser.Line) {
	b.LevelCounts[levelIndex(l.Level)]++
	b.MessageCounts[string(l.MessageKey)]++
	if l.HasLatency {
		b.Histogram.Add(int(l.LatencyMs))
	}
}
