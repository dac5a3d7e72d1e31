// Package metrics implements the optional Prometheus surface: counters and
// gauges that mirror the mandatory stdout report frame (internal/reporter),
// exposed over promhttp.Handler() when metrics are enabled. This is an
// additional observability surface; it never replaces the stdout frames.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/otus-labs/logwatch-agent/internal/stats"
)

var (
	// BusPublishedTotal and BusDroppedTotal mirror bus.Published()/Dropped(),
	// which the bus already tracks as running cumulative totals; Record sets
	// them directly rather than accumulating deltas.
	BusPublishedTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logwatch_bus_published_total",
			Help: "Total number of filesystem events published to the bus",
		},
	)

	BusDroppedTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logwatch_bus_dropped_total",
			Help: "Total number of filesystem events dropped because the bus was full",
		},
	)

	BusDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logwatch_bus_depth",
			Help: "Current number of queued events on the bus",
		},
	)

	FsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwatch_fs_events_total",
			Help: "Total number of filesystem events observed, by kind",
		},
		[]string{"kind"},
	)

	LinesProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logwatch_lines_processed_total",
			Help: "Total number of log lines processed",
		},
	)

	MalformedLinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logwatch_malformed_lines_total",
			Help: "Total number of lines that failed to parse",
		},
	)

	CoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logwatch_coalesced_total",
			Help: "Total number of modify events coalesced because a file's gate was already held",
		},
	)

	IoErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwatch_io_errors_total",
			Help: "Total number of tailer I/O outcomes, by kind",
		},
		[]string{"kind"},
	)

	SwapAckTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logwatch_swap_ack_timeouts_total",
			Help: "Total number of worker swap acknowledgements that timed out",
		},
	)

	ReporterIntervalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logwatch_reporter_interval_seconds",
			Help: "Elapsed seconds covered by the most recently completed report interval",
		},
	)
)

// fsEventKinds is the fixed set of "kind" label values FsEventsTotal and
// IoErrorsTotal are reported with; Record always sets every series so a
// kind with zero observations still appears at 0 rather than being absent.
var fsEventKinds = []string{"created", "modified", "deleted", "renamed"}
var ioErrorKinds = []string{"file_not_found", "access_denied", "io_error", "truncated_reset"}

func init() {
	for _, k := range fsEventKinds {
		FsEventsTotal.WithLabelValues(k)
	}
	for _, k := range ioErrorKinds {
		IoErrorsTotal.WithLabelValues(k)
	}
}

// Record updates every metric from one completed, merged snapshot plus the
// interval's elapsed seconds and ack-timeout count. The snapshot's scalar
// fields are per-interval sums (stats.Snapshot.ResetForNextMerge clears them
// each tick), so the *_total counters accumulate via Add; BusPublished and
// BusDropped are already running totals maintained by the bus itself, so
// those two are Set directly instead.
func Record(s *stats.Snapshot, ackTimeouts int, elapsedSeconds float64) {
	FsEventsTotal.WithLabelValues("created").Add(float64(s.FsCreated))
	FsEventsTotal.WithLabelValues("modified").Add(float64(s.FsModified))
	FsEventsTotal.WithLabelValues("deleted").Add(float64(s.FsDeleted))
	FsEventsTotal.WithLabelValues("renamed").Add(float64(s.FsRenamed))

	LinesProcessedTotal.Add(float64(s.LinesProcessed))
	MalformedLinesTotal.Add(float64(s.MalformedLines))
	CoalescedTotal.Add(float64(s.CoalescedDueToBusyGate))

	IoErrorsTotal.WithLabelValues("file_not_found").Add(float64(s.FileNotFound))
	IoErrorsTotal.WithLabelValues("access_denied").Add(float64(s.AccessDenied))
	IoErrorsTotal.WithLabelValues("io_error").Add(float64(s.IoException))
	IoErrorsTotal.WithLabelValues("truncated_reset").Add(float64(s.TruncationReset))

	SwapAckTimeoutsTotal.Add(float64(ackTimeouts))

	BusPublishedTotal.Set(float64(s.BusPublished))
	BusDroppedTotal.Set(float64(s.BusDropped))
	BusDepth.Set(float64(s.BusDepth))

	ReporterIntervalSeconds.Set(elapsedSeconds)
}
