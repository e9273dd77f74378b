package configstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const baseDoc = `{
  "theme": "dark",
  "namedServers": {
    "existing": {"command": "python", "args": ["srv.py"]}
  },
  "autoStart": {"servers": ["existing"]}
}`

func newStore(t *testing.T, content string) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app_config.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return New(path, filepath.Join(dir, "backups"))
}

func TestMutateMissingConfig(t *testing.T) {
	t.Parallel()
	s := newStore(t, "")

	_, err := s.Mutate(AddServer("x", []byte(`{}`), false))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMutateMalformedConfigAbortsBeforeBackup(t *testing.T) {
	t.Parallel()
	s := newStore(t, `{"namedServers": !!!`)

	_, err := s.Mutate(AddServer("x", []byte(`{}`), false))
	require.ErrorIs(t, err, ErrParse)

	// Parse failure aborts before any write: no backup directory, original intact.
	_, statErr := os.Stat(s.backupDir)
	require.True(t, os.IsNotExist(statErr), "no backup must be written on parse failure")

	data, readErr := os.ReadFile(s.path)
	require.NoError(t, readErr)
	require.Equal(t, `{"namedServers": !!!`, string(data))
}

func TestAddServerRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t, baseDoc)

	cfg := []byte(`{"command":"node","args":["x.js"]}`)
	msg, err := s.Mutate(AddServer("tool1", cfg, false))
	require.NoError(t, err)
	require.Contains(t, msg, "tool1")

	doc, err := s.Document()
	require.NoError(t, err)
	require.Equal(t, "node", gjson.GetBytes(doc, "namedServers.tool1.command").String())
	// Untouched keys survive.
	require.Equal(t, "dark", gjson.GetBytes(doc, "theme").String())
	require.Equal(t, "python", gjson.GetBytes(doc, "namedServers.existing.command").String())
}

func TestAddServerWithAutoStart(t *testing.T) {
	t.Parallel()
	s := newStore(t, baseDoc)

	_, err := s.Mutate(AddServer("tool1", []byte(`{"command":"node"}`), true))
	require.NoError(t, err)

	doc, err := s.Document()
	require.NoError(t, err)
	list := gjson.GetBytes(doc, "autoStart.servers").Array()
	require.Len(t, list, 2)
	require.Equal(t, "tool1", list[1].String())

	// Re-adding must not duplicate the autostart entry.
	_, err = s.Mutate(AddServer("tool1", []byte(`{"command":"deno"}`), true))
	require.NoError(t, err)

	doc, err = s.Document()
	require.NoError(t, err)
	require.Len(t, gjson.GetBytes(doc, "autoStart.servers").Array(), 2)
	require.Equal(t, "deno", gjson.GetBytes(doc, "namedServers.tool1.command").String())
}

func TestRemoveServerPurgesAutoStart(t *testing.T) {
	t.Parallel()
	s := newStore(t, baseDoc)

	msg, err := s.Mutate(RemoveServer("existing"))
	require.NoError(t, err)
	require.Contains(t, msg, "removed")

	doc, err := s.Document()
	require.NoError(t, err)
	require.False(t, gjson.GetBytes(doc, "namedServers.existing").Exists())
	for _, v := range gjson.GetBytes(doc, "autoStart.servers").Array() {
		require.NotEqual(t, "existing", v.String(), "autostart must not keep a dangling reference")
	}
}

func TestRemoveServerNotFoundIsNotAnError(t *testing.T) {
	t.Parallel()
	s := newStore(t, baseDoc)

	before, err := s.Document()
	require.NoError(t, err)

	msg, err := s.Mutate(RemoveServer("ghost"))
	require.NoError(t, err)
	require.Contains(t, msg, "not found")

	after, err := s.Document()
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestBackupMatchesPreMutationContent(t *testing.T) {
	t.Parallel()
	s := newStore(t, baseDoc)

	_, err := s.Mutate(AddServer("tool1", []byte(`{"command":"node"}`), false))
	require.NoError(t, err)

	entries, err := os.ReadDir(s.backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Regexp(t, `^config_backup_\d+\.json$`, entries[0].Name())
	require.Regexp(t, `^config_backup_\d+\.json\.b3$`, entries[1].Name())

	backup, err := os.ReadFile(filepath.Join(s.backupDir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, baseDoc, string(backup))

	digest, err := os.ReadFile(filepath.Join(s.backupDir, entries[1].Name()))
	require.NoError(t, err)
	require.Len(t, strings.TrimSpace(string(digest)), 64)
}

func TestServerNameWithDots(t *testing.T) {
	t.Parallel()
	s := newStore(t, baseDoc)

	_, err := s.Mutate(AddServer("my.tool", []byte(`{"command":"node"}`), false))
	require.NoError(t, err)

	doc, err := s.Document()
	require.NoError(t, err)
	require.Contains(t, ServerNames(doc), "my.tool")
	// The dotted name must be one key, not a nested object.
	require.False(t, gjson.GetBytes(doc, "namedServers.my.tool").Exists())

	_, err = s.Mutate(RemoveServer("my.tool"))
	require.NoError(t, err)

	doc, err = s.Document()
	require.NoError(t, err)
	require.NotContains(t, ServerNames(doc), "my.tool")
}

func TestMutateFuncErrorLeavesConfigUntouched(t *testing.T) {
	t.Parallel()
	s := newStore(t, baseDoc)

	boom := errors.New("boom")
	_, err := s.Mutate(func(doc []byte) ([]byte, string, error) {
		return nil, "", boom
	})
	require.ErrorIs(t, err, boom)

	data, readErr := os.ReadFile(s.path)
	require.NoError(t, readErr)
	require.Equal(t, baseDoc, string(data))
}
