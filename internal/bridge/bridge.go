// Package bridge runs the daemon: one event loop interleaving watcher
// deliveries, the heartbeat tick, and in-flight action execution. One action
// runs to completion before the next is taken, which serializes config
// mutation without a lock.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mattjoyce/deskbridge/internal/config"
	"github.com/mattjoyce/deskbridge/internal/configstore"
	"github.com/mattjoyce/deskbridge/internal/dispatch"
	"github.com/mattjoyce/deskbridge/internal/history"
	"github.com/mattjoyce/deskbridge/internal/log"
	"github.com/mattjoyce/deskbridge/internal/queue"
	"github.com/mattjoyce/deskbridge/internal/status"
	"github.com/mattjoyce/deskbridge/internal/supervisor"
	"github.com/mattjoyce/deskbridge/internal/watcher"
)

// Bridge owns the daemon-side components.
type Bridge struct {
	cfg        *config.Config
	queue      *queue.Queue
	watcher    *watcher.Watcher
	dispatcher *dispatch.Dispatcher
	reporter   *status.Reporter
	history    *history.Store
	logger     *slog.Logger
}

// New wires the bridge from configuration. The history mirror is best-effort:
// a database that fails to open degrades to no history rather than refusing
// to start.
func New(ctx context.Context, cfg *config.Config) (*Bridge, error) {
	q, err := queue.Open(cfg.Paths.BridgeDir)
	if err != nil {
		return nil, err
	}

	w, err := watcher.New(q.PendingDir(), cfg.Service.SweepInterval)
	if err != nil {
		return nil, err
	}

	store := configstore.New(cfg.Paths.ConfigFile, cfg.Paths.BackupDir)
	sup := supervisor.New(supervisor.OSProcessAPI{}, cfg.App.Executable,
		cfg.Service.GracePeriod, cfg.Service.SettleDelay)

	hist, err := history.Open(ctx, cfg.HistoryFile())
	if err != nil {
		log.WithComponent("bridge").Warn("history disabled", "error", err)
		hist = nil
	}

	return NewWithParts(cfg, q, w, dispatch.New(q, store, sup, hist), hist), nil
}

// NewWithParts assembles a bridge from explicit components. Tests use it to
// substitute fakes.
func NewWithParts(cfg *config.Config, q *queue.Queue, w *watcher.Watcher, d *dispatch.Dispatcher, hist *history.Store) *Bridge {
	return &Bridge{
		cfg:        cfg,
		queue:      q,
		watcher:    w,
		dispatcher: d,
		reporter:   status.NewReporter(cfg.StatusFile()),
		history:    hist,
		logger:     log.WithComponent("bridge"),
	}
}

// Run executes the bridge until ctx is cancelled, then unwinds through the
// cleanup path: the watcher stops and a final stopped status is written.
// Returns nil on a clean shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.reporter.Write(status.StateInitializing); err != nil {
		return err
	}

	// Records left pending across a restart are processed before the watcher
	// starts, so nothing depends on a creation event that already fired.
	b.recoverPending(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.watcher.Run(gctx) })
	g.Go(func() error { return b.loop(gctx) })

	err := g.Wait()

	if werr := b.reporter.Write(status.StateStopped); werr != nil {
		b.logger.Error("failed to write stopped status", "error", werr)
	}
	if b.history != nil {
		_ = b.history.Close()
	}
	b.logger.Info("bridge stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loop is the single scheduler: watcher deliveries and the heartbeat tick
// share one select, and dispatch runs inline so no two actions overlap.
func (b *Bridge) loop(ctx context.Context) error {
	if err := b.reporter.Write(status.StateRunning); err != nil {
		return err
	}
	b.logger.Info("bridge started, watching for actions",
		"bridge_dir", b.cfg.Paths.BridgeDir,
		"config_file", b.cfg.Paths.ConfigFile,
	)

	heartbeat := time.NewTicker(b.cfg.Service.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case path := <-b.watcher.Records():
			b.dispatcher.Process(ctx, path)

		case <-heartbeat.C:
			if err := b.reporter.Write(status.StateRunning); err != nil {
				b.logger.Error("heartbeat write failed", "error", err)
			}
		}
	}
}

// recoverPending dispatches records already sitting in the pending area.
func (b *Bridge) recoverPending(ctx context.Context) {
	paths, err := b.queue.TakePending()
	if err != nil {
		b.logger.Error("startup sweep failed", "error", err)
		return
	}
	if len(paths) > 0 {
		b.logger.Info("recovering pending actions", "count", len(paths))
	}
	for _, p := range paths {
		b.dispatcher.Process(ctx, p)
	}
}
