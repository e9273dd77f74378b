// Package dispatch routes observed pending records to their handlers and
// records the outcome. Every error raised inside a handler is converted into a
// terminal failed record at this boundary; nothing escapes to the event loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/deskbridge/internal/action"
	"github.com/mattjoyce/deskbridge/internal/configstore"
	"github.com/mattjoyce/deskbridge/internal/history"
	"github.com/mattjoyce/deskbridge/internal/log"
	"github.com/mattjoyce/deskbridge/internal/queue"
	"github.com/mattjoyce/deskbridge/internal/supervisor"
)

// Restarter is the supervisor seam the dispatcher depends on.
type Restarter interface {
	Restart(ctx context.Context) (string, error)
}

var _ Restarter = (*supervisor.Supervisor)(nil)

// Dispatcher executes one action record at a time.
type Dispatcher struct {
	queue   *queue.Queue
	store   *configstore.Store
	restart Restarter
	history *history.Store // nil disables the history mirror
	logger  *slog.Logger
}

// New creates a Dispatcher. hist may be nil.
func New(q *queue.Queue, store *configstore.Store, restart Restarter, hist *history.Store) *Dispatcher {
	return &Dispatcher{
		queue:   q,
		store:   store,
		restart: restart,
		history: hist,
		logger:  log.WithComponent("dispatch"),
	}
}

// Process handles one observed pending record path through to its terminal
// state. Records already relocated by an earlier observation are skipped; an
// unreadable record is published as a synthetic failure so it cannot silently
// vanish.
func (d *Dispatcher) Process(ctx context.Context, path string) {
	id := strings.TrimSuffix(filepath.Base(path), queue.RecordExt)

	rec, err := d.queue.LoadPending(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Already dispatched via the other delivery path, or published as a
		// terminal record. Only synthesize a failure when neither happened.
		if term, terr := d.queue.Terminal(id); terr == nil && term != nil {
			return
		}
		d.logger.Debug("pending record gone before dispatch", "action_id", id)
		return
	}
	if err != nil {
		d.logger.Error("unreadable pending record", "action_id", id, "error", err)
		if ferr := d.queue.FailFile(path, fmt.Sprintf("unreadable action record: %v", err)); ferr != nil {
			d.logger.Error("failed to publish synthetic record", "action_id", id, "error", ferr)
			return
		}
		d.mirror(ctx, id)
		return
	}

	logger := log.WithAction(rec.ID).With("action", string(rec.Kind))
	logger.Info("executing action")

	result, execErr := d.execute(ctx, rec)
	if execErr != nil {
		logger.Warn("action failed", "error", execErr)
		if err := d.queue.Fail(rec.ID, execErr.Error()); err != nil {
			logger.Error("failed to publish failed record", "error", err)
			return
		}
	} else {
		logger.Info("action completed", "result", result)
		if err := d.queue.Complete(rec.ID, result); err != nil {
			logger.Error("failed to publish completed record", "error", err)
			return
		}
	}

	d.mirror(ctx, rec.ID)
}

// execute runs the handler for the record's kind. The switch is the closed
// routing table; Validate has already rejected unknown kinds, so the default
// arm only guards against future kinds missing a handler.
func (d *Dispatcher) execute(ctx context.Context, rec *action.Record) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action handler panicked: %v", r)
		}
	}()

	if err := rec.Validate(); err != nil {
		return "", err
	}

	switch rec.Kind {
	case action.KindAddServer:
		return d.store.Mutate(configstore.AddServer(rec.Params.Name, rec.Params.Config, rec.Params.AutoStart))
	case action.KindRemoveServer:
		return d.store.Mutate(configstore.RemoveServer(rec.Params.Name))
	case action.KindRestartApp:
		return d.restart.Restart(ctx)
	default:
		return "", fmt.Errorf("no handler for action %q", rec.Kind)
	}
}

// mirror copies the terminal record into the history database, best-effort.
func (d *Dispatcher) mirror(ctx context.Context, id string) {
	if d.history == nil {
		return
	}
	rec, err := d.queue.Terminal(id)
	if err != nil || rec == nil {
		return
	}
	if err := d.history.Record(ctx, rec); err != nil {
		d.logger.Warn("history mirror failed", "action_id", id, "error", err)
	}
}
