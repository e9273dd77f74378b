// Package configstore owns mutation of the managed application's JSON
// configuration. The document is treated as opaque: edits go through
// gjson/sjson paths instead of binding the whole file to a struct, so unknown
// keys written by the app survive every mutation byte-for-byte.
package configstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zeebo/blake3"

	"github.com/mattjoyce/deskbridge/internal/log"
)

var (
	// ErrNotFound means the config file does not exist.
	ErrNotFound = errors.New("config file not found")

	// ErrParse means the persisted config is not valid JSON. Mutation aborts
	// before any backup or write, leaving the file untouched.
	ErrParse = errors.New("config file is not valid JSON")
)

// MutateFunc transforms the current document into a new one plus a
// human-readable message for the action result.
type MutateFunc func(doc []byte) (out []byte, message string, err error)

// Store serializes access to one config file. Serialization across actions is
// provided by the bridge's single event loop, not by the store itself.
type Store struct {
	path      string
	backupDir string
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a store for the config file at path, writing backups to backupDir.
func New(path, backupDir string) *Store {
	return &Store{
		path:      path,
		backupDir: backupDir,
		now:       time.Now,
		logger:    log.WithComponent("configstore"),
	}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Document returns the current config content, validating it parses.
func (s *Store) Document() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s", ErrParse, s.path)
	}
	return data, nil
}

// Mutate applies fn under the backup-before-mutate protocol:
// load and validate, snapshot the pre-mutation content, apply fn, then replace
// the document via write-to-temp-and-rename so a crash mid-write cannot leave
// a truncated config behind.
func (s *Store) Mutate(fn MutateFunc) (string, error) {
	data, err := s.Document()
	if err != nil {
		return "", err
	}

	backupPath, digest, err := s.backup(data)
	if err != nil {
		return "", err
	}

	out, message, err := fn(data)
	if err != nil {
		return "", err
	}

	if err := replaceFile(s.path, out); err != nil {
		return "", err
	}

	s.logger.Info("config updated",
		"message", message,
		"backup", filepath.Base(backupPath),
		"backup_digest", digest,
	)
	return message, nil
}

// backup writes an immutable pre-mutation snapshot named with the current
// epoch second, plus a sidecar .b3 file holding the snapshot's content digest
// so drift can be audited later. Two mutations inside the same second
// overwrite one snapshot; backups are best-effort, not the system of record.
func (s *Store) backup(data []byte) (path, digest string, err error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create backup directory: %w", err)
	}

	path = filepath.Join(s.backupDir, fmt.Sprintf("config_backup_%d.json", s.now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write backup snapshot: %w", err)
	}

	sum := blake3.Sum256(data)
	digest = hex.EncodeToString(sum[:])
	if err := os.WriteFile(path+".b3", []byte(digest+"\n"), 0o644); err != nil {
		return "", "", fmt.Errorf("write backup digest: %w", err)
	}
	return path, digest, nil
}

func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}
