// Package supervisor restarts the managed application. Processes are matched
// by executable path equality, not by name alone, so an unrelated process that
// happens to share the binary name is never touched.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mattjoyce/deskbridge/internal/log"
)

// ProcessInfo identifies a running process by pid and executable path.
type ProcessInfo struct {
	PID     int32
	ExePath string
}

// ProcessAPI is the OS process collaborator. The production implementation is
// in process_api.go; tests substitute a fake.
type ProcessAPI interface {
	ListProcesses(ctx context.Context) ([]ProcessInfo, error)
	Terminate(pid int32) error
	ForceKill(pid int32) error
	WaitForExit(ctx context.Context, pid int32, timeout time.Duration) (bool, error)
	Launch(exePath string) (int32, error)
}

// Supervisor terminates and relaunches the managed executable.
type Supervisor struct {
	api     ProcessAPI
	exePath string
	grace   time.Duration
	settle  time.Duration
	logger  *slog.Logger
}

// New creates a supervisor for exePath. grace bounds the wait for voluntary
// exit after a terminate signal; settle is the pause before relaunch that lets
// the OS release file handles and ports.
func New(api ProcessAPI, exePath string, grace, settle time.Duration) *Supervisor {
	return &Supervisor{
		api:     api,
		exePath: filepath.Clean(exePath),
		grace:   grace,
		settle:  settle,
		logger:  log.WithComponent("supervisor"),
	}
}

// Restart stops every matching process and starts a fresh instance. Finding no
// running instance skips termination and proceeds straight to launch; that is
// a success, not an error.
func (s *Supervisor) Restart(ctx context.Context) (string, error) {
	procs, err := s.api.ListProcesses(ctx)
	if err != nil {
		return "", fmt.Errorf("list processes: %w", err)
	}

	var matches []ProcessInfo
	for _, p := range procs {
		if p.ExePath != "" && filepath.Clean(p.ExePath) == s.exePath {
			matches = append(matches, p)
		}
	}

	if len(matches) == 0 {
		s.logger.Warn("no running instance found, starting a new one", "exe", s.exePath)
		pid, err := s.api.Launch(s.exePath)
		if err != nil {
			return "", fmt.Errorf("launch %s: %w", s.exePath, err)
		}
		return fmt.Sprintf("no running instance found; started a new instance (pid %d)", pid), nil
	}

	if err := s.terminateAll(ctx, matches); err != nil {
		return "", err
	}

	if err := sleepCtx(ctx, s.settle); err != nil {
		return "", err
	}

	pid, err := s.api.Launch(s.exePath)
	if err != nil {
		return "", fmt.Errorf("launch %s: %w", s.exePath, err)
	}

	return fmt.Sprintf("restarted: stopped %d instance(s), started pid %d", len(matches), pid), nil
}

// terminateAll sends a graceful terminate to every match, waits up to the
// grace period for voluntary exit, and force-kills survivors.
func (s *Supervisor) terminateAll(ctx context.Context, matches []ProcessInfo) error {
	for _, p := range matches {
		s.logger.Info("terminating instance", "pid", p.PID)
		if err := s.api.Terminate(p.PID); err != nil {
			s.logger.Warn("terminate failed, will escalate", "pid", p.PID, "error", err)
		}
	}

	deadline := time.Now().Add(s.grace)
	for _, p := range matches {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}

		exited, err := s.api.WaitForExit(ctx, p.PID, remaining)
		if err != nil {
			return fmt.Errorf("wait for pid %d: %w", p.PID, err)
		}
		if exited {
			continue
		}

		s.logger.Warn("instance survived grace period, killing", "pid", p.PID)
		if err := s.api.ForceKill(p.PID); err != nil {
			return fmt.Errorf("kill pid %d: %w", p.PID, err)
		}
	}
	return nil
}

// sleepCtx waits for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
