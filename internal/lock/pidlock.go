package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// PIDLock enforces the one-bridge-per-config-file precondition via a PID file
// held under flock(2). The lock lives as long as the file descriptor stays open.
type PIDLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock at path and records the current
// PID in it. A second bridge instance pointed at the same bridge directory
// fails here instead of racing the first over the config file.
func Acquire(path string) (*PIDLock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("another bridge instance holds %s: %w", path, err)
	}

	if err := writePID(f); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, err
	}

	return &PIDLock{path: path, f: f}, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

func (l *PIDLock) Path() string { return l.path }

// Release unlocks and closes the PID file. Safe to call on a nil lock.
func (l *PIDLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
