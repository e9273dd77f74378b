package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mattjoyce/deskbridge/internal/action"
	"github.com/mattjoyce/deskbridge/internal/configstore"
	"github.com/mattjoyce/deskbridge/internal/queue"
)

type fakeRestarter struct {
	msg   string
	err   error
	calls int
}

func (f *fakeRestarter) Restart(ctx context.Context) (string, error) {
	f.calls++
	return f.msg, f.err
}

func newFixture(t *testing.T) (*Dispatcher, *queue.Queue, *configstore.Store, *fakeRestarter) {
	t.Helper()

	q, err := queue.Open(t.TempDir())
	require.NoError(t, err)

	appDir := t.TempDir()
	cfgPath := filepath.Join(appDir, "app_config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"namedServers":{"old":{"command":"python"}},"autoStart":{"servers":["old"]}}`), 0o644))
	store := configstore.New(cfgPath, filepath.Join(appDir, "backups"))

	restarter := &fakeRestarter{msg: "restarted: stopped 1 instance(s), started pid 7"}
	return New(q, store, restarter, nil), q, store, restarter
}

func submit(t *testing.T, q *queue.Queue, kind action.Kind, params action.Params) (string, string) {
	t.Helper()
	id, err := q.Submit(kind, params, "test")
	require.NoError(t, err)
	paths, err := q.TakePending()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	return id, paths[0]
}

func TestProcessAddServerCompletes(t *testing.T) {
	t.Parallel()
	d, q, store, _ := newFixture(t)

	id, path := submit(t, q, action.KindAddServer, action.Params{
		Name:   "tool1",
		Config: []byte(`{"command":"node","args":["srv.js"]}`),
	})

	d.Process(context.Background(), path)

	rec, err := q.Terminal(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, action.StatusCompleted, rec.Status)

	doc, err := store.Document()
	require.NoError(t, err)
	require.Equal(t, "node", gjson.GetBytes(doc, "namedServers.tool1.command").String())
}

func TestProcessRemoveAbsentServerCompletes(t *testing.T) {
	t.Parallel()
	d, q, _, _ := newFixture(t)

	id, path := submit(t, q, action.KindRemoveServer, action.Params{Name: "ghost"})

	d.Process(context.Background(), path)

	rec, err := q.Terminal(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, action.StatusCompleted, rec.Status)
	require.Contains(t, rec.Result, "not found")
}

func TestProcessRestartDelegates(t *testing.T) {
	t.Parallel()
	d, q, _, restarter := newFixture(t)

	id, path := submit(t, q, action.KindRestartApp, action.Params{})

	d.Process(context.Background(), path)

	require.Equal(t, 1, restarter.calls)
	rec, err := q.Terminal(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, action.StatusCompleted, rec.Status)
	require.Contains(t, rec.Result, "restarted")
}

func TestProcessRestartFailurePublishesFailedRecord(t *testing.T) {
	t.Parallel()
	d, q, _, restarter := newFixture(t)
	restarter.err = errors.New("launch /opt/app: permission denied")

	id, path := submit(t, q, action.KindRestartApp, action.Params{})

	d.Process(context.Background(), path)

	rec, err := q.Terminal(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, action.StatusFailed, rec.Status)
	require.Contains(t, rec.Error, "permission denied")
}

func TestProcessInvalidRecordFails(t *testing.T) {
	t.Parallel()
	d, q, store, _ := newFixture(t)

	// Missing name makes the record invalid at execution time.
	id, path := submit(t, q, action.KindAddServer, action.Params{Config: []byte(`{}`)})

	before, err := store.Document()
	require.NoError(t, err)

	d.Process(context.Background(), path)

	rec, err := q.Terminal(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, action.StatusFailed, rec.Status)

	after, err := store.Document()
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestProcessUnreadableRecordPublishesSyntheticFailure(t *testing.T) {
	t.Parallel()
	d, q, _, _ := newFixture(t)

	path := filepath.Join(q.PendingDir(), "garbled.json")
	require.NoError(t, os.WriteFile(path, []byte("{definitely not json"), 0o644))

	d.Process(context.Background(), path)

	rec, err := q.Terminal("garbled")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, action.StatusFailed, rec.Status)
	require.Contains(t, rec.Error, "unreadable")
}

func TestProcessDisappearedRecordIsSkipped(t *testing.T) {
	t.Parallel()
	d, q, _, restarter := newFixture(t)

	id, path := submit(t, q, action.KindRestartApp, action.Params{})

	// First delivery handles it; the duplicate delivery must be a no-op.
	d.Process(context.Background(), path)
	d.Process(context.Background(), path)

	require.Equal(t, 1, restarter.calls)

	rec, err := q.Terminal(id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, action.StatusCompleted, rec.Status)
}
