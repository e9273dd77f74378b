// Package queue implements the durable file-backed action queue shared by the
// client and the bridge. The queue directory is the only synchronization point
// between the two processes: there is no lock file. Safety comes from two
// filesystem primitives. O_EXCL creation for submit, so two submissions never
// collide on an id, and rename for publishing terminal records, so a reader
// never observes a half-written record under a terminal path.
package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/deskbridge/internal/action"
	"github.com/mattjoyce/deskbridge/internal/log"
)

// RecordExt is the extension of every action record file.
const RecordExt = ".json"

const defaultPollInterval = 500 * time.Millisecond

// ErrNotPending is returned when a terminal transition is requested for an id
// with no record in the pending area.
var ErrNotPending = errors.New("no pending record for id")

// Queue is a handle on the bridge's queue directory. It is safe to open the
// same directory from multiple processes.
type Queue struct {
	root         string
	pendingDir   string
	completedDir string
	failedDir    string

	// PollInterval is the client-side wait cadence. Tests shorten it.
	PollInterval time.Duration

	now    func() time.Time
	logger *slog.Logger
}

// Open ensures the queue directory layout exists under root and returns a
// handle on it.
func Open(root string) (*Queue, error) {
	if root == "" {
		return nil, fmt.Errorf("queue root is empty")
	}

	q := &Queue{
		root:         root,
		pendingDir:   filepath.Join(root, "pending"),
		completedDir: filepath.Join(root, "completed"),
		failedDir:    filepath.Join(root, "failed"),
		PollInterval: defaultPollInterval,
		now:          time.Now,
		logger:       log.WithComponent("queue"),
	}

	for _, dir := range []string{q.pendingDir, q.completedDir, q.failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create queue directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// PendingDir returns the directory the watcher subscribes to.
func (q *Queue) PendingDir() string { return q.pendingDir }

// Submit writes a fresh pending record and returns its id. The record file is
// created with O_EXCL so a duplicate id fails instead of clobbering.
func (q *Queue) Submit(kind action.Kind, params action.Params, client string) (string, error) {
	if !kind.Known() {
		return "", fmt.Errorf("%w: unknown action %q", action.ErrValidation, kind)
	}

	rec := &action.Record{
		ID:          uuid.NewString(),
		Kind:        kind,
		Params:      params,
		Status:      action.StatusPending,
		SubmittedAt: q.now().Unix(),
		Client:      client,
	}

	data, err := rec.Encode()
	if err != nil {
		return "", err
	}

	path := filepath.Join(q.pendingDir, rec.ID+RecordExt)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create pending record: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write pending record: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close pending record: %w", err)
	}

	return rec.ID, nil
}

// TakePending lists record files currently in the pending area, oldest name
// first. Used both by the startup sweep and the periodic re-scan.
func (q *Queue) TakePending() ([]string, error) {
	entries, err := os.ReadDir(q.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("read pending directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), RecordExt) {
			continue
		}
		paths = append(paths, filepath.Join(q.pendingDir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadPending reads and decodes a record from the pending area. A record that
// has already been relocated returns fs.ErrNotExist.
func (q *Queue) LoadPending(path string) (*action.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return action.Decode(data)
}

// Complete stamps a pending record completed and publishes it.
func (q *Queue) Complete(id, result string) error {
	return q.finalize(id, func(rec *action.Record) {
		rec.Status = action.StatusCompleted
		rec.Result = result
		rec.Error = ""
	}, q.completedDir)
}

// Fail stamps a pending record failed and publishes it.
func (q *Queue) Fail(id, errMsg string) error {
	return q.finalize(id, func(rec *action.Record) {
		rec.Status = action.StatusFailed
		rec.Error = errMsg
		rec.Result = ""
	}, q.failedDir)
}

// finalize loads the pending record, applies the terminal stamp, writes the
// full content back to the same pending path, then renames it into the
// terminal area. Content is final before the rename, so no reader ever sees a
// partial terminal record.
func (q *Queue) finalize(id string, stamp func(*action.Record), destDir string) error {
	pendingPath := filepath.Join(q.pendingDir, id+RecordExt)

	rec, err := q.LoadPending(pendingPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotPending, id)
	}
	if err != nil {
		return fmt.Errorf("load pending record %s: %w", id, err)
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("record %s is already %s", id, rec.Status)
	}

	stamp(rec)

	data, err := rec.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(pendingPath, data, 0o644); err != nil {
		return fmt.Errorf("write terminal record %s: %w", id, err)
	}
	if err := os.Rename(pendingPath, filepath.Join(destDir, id+RecordExt)); err != nil {
		return fmt.Errorf("publish terminal record %s: %w", id, err)
	}
	return nil
}

// FailFile publishes a synthetic failed record for a pending file that could
// not be read, deriving the id from the filename so the action does not
// silently vanish.
func (q *Queue) FailFile(path, errMsg string) error {
	id := strings.TrimSuffix(filepath.Base(path), RecordExt)
	rec := &action.Record{
		ID:          id,
		Status:      action.StatusFailed,
		SubmittedAt: q.now().Unix(),
		Error:       errMsg,
	}

	data, err := rec.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("rewrite unreadable record %s: %w", id, err)
	}
	if err := os.Rename(path, filepath.Join(q.failedDir, id+RecordExt)); err != nil {
		return fmt.Errorf("publish synthetic failed record %s: %w", id, err)
	}

	q.logger.Warn("published synthetic failed record", "action_id", id, "error", errMsg)
	return nil
}

// Terminal returns the record for id from the completed or failed area, or nil
// if no terminal record exists yet.
func (q *Queue) Terminal(id string) (*action.Record, error) {
	for _, dir := range []string{q.completedDir, q.failedDir} {
		data, err := os.ReadFile(filepath.Join(dir, id+RecordExt))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read terminal record %s: %w", id, err)
		}
		return action.Decode(data)
	}
	return nil, nil
}

// WaitForResult polls for a terminal record at PollInterval until timeout.
// A nil record with a nil error means the wait timed out; the action may still
// reach a terminal state later. Cancelling ctx never affects the in-flight
// action on the bridge side.
func (q *Queue) WaitForResult(ctx context.Context, id string, timeout time.Duration) (*action.Record, error) {
	deadline := q.now().Add(timeout)

	ticker := time.NewTicker(q.PollInterval)
	defer ticker.Stop()

	for {
		rec, err := q.Terminal(id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
		if !q.now().Before(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Counts reports how many records sit in each area.
func (q *Queue) Counts() (pending, completed, failed int, err error) {
	count := func(dir string) (int, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return 0, fmt.Errorf("read queue directory %s: %w", dir, err)
		}
		n := 0
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), RecordExt) {
				n++
			}
		}
		return n, nil
	}

	if pending, err = count(q.pendingDir); err != nil {
		return 0, 0, 0, err
	}
	if completed, err = count(q.completedDir); err != nil {
		return 0, 0, 0, err
	}
	if failed, err = count(q.failedDir); err != nil {
		return 0, 0, 0, err
	}
	return pending, completed, failed, nil
}

// RecentTerminal returns up to n terminal records, newest modification first.
// Used by the watch TUI.
func (q *Queue) RecentTerminal(n int) ([]*action.Record, error) {
	type candidate struct {
		path string
		mod  time.Time
	}
	var files []candidate

	for _, dir := range []string{q.completedDir, q.failedDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read queue directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), RecordExt) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, candidate{path: filepath.Join(dir, e.Name()), mod: info.ModTime()})
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	if len(files) > n {
		files = files[:n]
	}

	var recs []*action.Record
	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			continue
		}
		rec, err := action.Decode(data)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
