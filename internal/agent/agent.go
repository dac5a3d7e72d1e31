// Package agent is the composition root: it wires the watcher, bus,
// registry, coordinator, reporter, and optional metrics server into one
// runnable unit and owns their ordered startup/shutdown.
//
// Grounded on internal/otus/boot/bootstrap.go's Start/initShutdownListener
// shape: a signal-driven cancellation context, ordered component startup,
// and a bounded shutdown sequence, adapted from the teacher's
// plugin-registry + per-pipe module container into a single fixed pipeline.
package agent

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/otus-labs/logwatch-agent/internal/config"
	"github.com/otus-labs/logwatch-agent/internal/coordinator"
	"github.com/otus-labs/logwatch-agent/internal/eventbus"
	"github.com/otus-labs/logwatch-agent/internal/fileprocessor"
	"github.com/otus-labs/logwatch-agent/internal/fsevent"
	"github.com/otus-labs/logwatch-agent/internal/log"
	"github.com/otus-labs/logwatch-agent/internal/metrics"
	"github.com/otus-labs/logwatch-agent/internal/registry"
	"github.com/otus-labs/logwatch-agent/internal/reporter"
	"github.com/otus-labs/logwatch-agent/internal/tailer"
	"github.com/otus-labs/logwatch-agent/internal/watcher"
)

// Agent owns every long-lived component for one run against one watch
// directory.
type Agent struct {
	cfg *config.Config
	out io.Writer

	w           *watcher.Watcher
	coordinator *coordinator.Coordinator
	rep         *reporter.Reporter
	metricsSrv  *metrics.Server
}

// New builds every component without starting any of them.
func New(cfg *config.Config, out io.Writer) (*Agent, error) {
	bus := eventbus.New[fsevent.Event](cfg.QueueCapacity)
	reg := registry.New()

	w, err := watcher.New(bus, cfg.ExtensionAllowlist, watcher.DefaultRenamePairWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Watch(cfg.WatchDir); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.WatchDir, err)
	}

	t := tailer.New(cfg.ReadChunkBytes)
	fp := fileprocessor.New(t)

	co := coordinator.New(bus, reg, fp, cfg.Workers, cfg.SwapAckTimeout, cfg.WorkerJoinTimeout)

	swappers := make([]reporter.WorkerSwapper, len(co.Stats()))
	for i, s := range co.Stats() {
		swappers[i] = s
	}
	rep := reporter.New(swappers, bus, out, reporter.Config{
		Interval:      cfg.ReportInterval,
		TopK:          cfg.TopK,
		AckTimeout:    cfg.SwapAckTimeout,
		MetricsExport: cfg.Metrics.Enabled,
	})

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
	}

	return &Agent{
		cfg:         cfg,
		out:         out,
		w:           w,
		coordinator: co,
		rep:         rep,
		metricsSrv:  metricsSrv,
	}, nil
}

// Run starts every component, blocks until SIGINT/SIGTERM/SIGHUP is
// received or ctx is canceled, then tears everything down via Stop and
// returns.
func (a *Agent) Run(ctx context.Context) error {
	reporter.Startup(a.out, a.cfg.WatchDir, a.cfg.Workers, a.cfg.QueueCapacity, a.cfg.TopK, a.cfg.ReportInterval)
	log.GetLogger().WithField("watch_dir", a.cfg.WatchDir).Info("logwatch-agent starting")

	if a.metricsSrv != nil {
		if err := a.metricsSrv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	a.w.Start()
	a.coordinator.Start()
	a.rep.Start()

	sigCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()
	<-sigCtx.Done()

	log.GetLogger().Info("shutdown signal received, stopping")
	a.Stop()
	return nil
}

// Stop tears down every component in pipeline order: watcher first
// (so no new events arrive), then the bus, then the coordinator (joins
// workers with a bounded timeout), then the reporter (prints a final frame
// with elapsed=0), then the metrics server.
func (a *Agent) Stop() {
	a.w.Stop()
	a.coordinator.Stop()
	a.rep.Stop()
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Stop(context.Background()); err != nil {
			log.GetLogger().WithError(err).Warn("metrics server did not shut down cleanly")
		}
	}
}
