package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/deskbridge/internal/action"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func terminalRecord(id string, status action.Status) *action.Record {
	rec := &action.Record{
		ID:          id,
		Kind:        action.KindAddServer,
		Status:      status,
		SubmittedAt: time.Now().Unix(),
	}
	if status == action.StatusCompleted {
		rec.Result = "server added"
	} else {
		rec.Error = "boom"
	}
	return rec
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, terminalRecord("h1", action.StatusCompleted)))
	require.NoError(t, s.Record(ctx, terminalRecord("h2", action.StatusFailed)))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	require.Equal(t, "h2", entries[0].ID)
	require.Equal(t, action.StatusFailed, entries[0].Status)
	require.Equal(t, "boom", entries[0].Error)
	require.Equal(t, "h1", entries[1].ID)
	require.Equal(t, "server added", entries[1].Result)
}

func TestRecordIsIdempotent(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	rec := terminalRecord("h1", action.StatusCompleted)
	require.NoError(t, s.Record(ctx, rec))
	require.NoError(t, s.Record(ctx, rec))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRecordRejectsPending(t *testing.T) {
	t.Parallel()
	s := openStore(t)

	rec := &action.Record{ID: "h1", Kind: action.KindRestartApp, Status: action.StatusPending}
	require.Error(t, s.Record(context.Background(), rec))
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Record(ctx, terminalRecord(id, action.StatusCompleted)))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
