// Package watcher detects new pending action records. Two delivery paths feed
// one channel: filesystem creation events scoped to the pending directory, and
// a periodic re-scan that recovers records whose events were missed (watcher
// started late, burst under load, bridge restart).
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mattjoyce/deskbridge/internal/log"
	"github.com/mattjoyce/deskbridge/internal/queue"
)

const recordBuffer = 64

// Watcher emits pending record paths on Records. Duplicate deliveries for the
// same record are expected; consumers dedupe by observing the pending area.
type Watcher struct {
	dir           string
	sweepInterval time.Duration
	records       chan string
	logger        *slog.Logger
}

// New creates a watcher for the pending directory dir.
func New(dir string, sweepInterval time.Duration) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory is empty")
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	return &Watcher{
		dir:           dir,
		sweepInterval: sweepInterval,
		records:       make(chan string, recordBuffer),
		logger:        log.WithComponent("watcher"),
	}, nil
}

// Records returns the channel of pending record paths.
func (w *Watcher) Records() <-chan string { return w.records }

// Run pumps creation events and sweep results into Records until ctx is
// cancelled. It blocks; callers run it in a goroutine (the bridge uses an
// errgroup).
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	// Non-recursive: only the pending directory matters. Terminal areas are
	// never watched, so an already-published record cannot be re-dispatched.
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch pending directory %s: %w", w.dir, err)
	}

	w.logger.Info("watching pending directory", "dir", w.dir, "sweep_interval", w.sweepInterval)

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) && strings.HasSuffix(ev.Name, queue.RecordExt) {
				w.logger.Debug("record created", "path", ev.Name)
				w.send(ev.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)

		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep re-scans the pending directory and re-emits everything found.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("sweep failed", "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), queue.RecordExt) {
			continue
		}
		w.send(filepath.Join(w.dir, e.Name()))
	}
}

// send delivers a path without blocking the event loop. A full channel is
// safe to drop into: the next sweep re-delivers anything still pending.
func (w *Watcher) send(path string) {
	select {
	case w.records <- path:
	default:
		w.logger.Warn("record channel full, deferring to sweep", "path", path)
	}
}
