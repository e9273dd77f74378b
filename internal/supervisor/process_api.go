package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const exitPollInterval = 200 * time.Millisecond

// OSProcessAPI implements ProcessAPI on top of gopsutil and os/exec.
type OSProcessAPI struct{}

var _ ProcessAPI = OSProcessAPI{}

// ListProcesses enumerates running processes with their executable paths.
// Processes whose executable cannot be resolved (permissions, already gone)
// are skipped rather than failing the whole listing.
func (OSProcessAPI) ListProcesses(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}
		infos = append(infos, ProcessInfo{PID: p.Pid, ExePath: exe})
	}
	return infos, nil
}

// Terminate sends the graceful termination signal.
func (OSProcessAPI) Terminate(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	if err := p.Terminate(); err != nil {
		return fmt.Errorf("terminate process %d: %w", pid, err)
	}
	return nil
}

// ForceKill kills the process without further ceremony.
func (OSProcessAPI) ForceKill(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	if err := p.Kill(); err != nil {
		return fmt.Errorf("kill process %d: %w", pid, err)
	}
	return nil
}

// WaitForExit polls until the process disappears or timeout elapses. Returns
// true when the process is gone.
func (OSProcessAPI) WaitForExit(ctx context.Context, pid int32, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		p, err := process.NewProcess(pid)
		if err != nil {
			return true, nil
		}
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			return true, nil
		}

		if time.Now().After(deadline) {
			return false, nil
		}

		t := time.NewTimer(exitPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	}
}

// Launch starts a detached instance of exePath and returns its pid. The child
// is reaped in the background so it never lingers as a zombie.
func (OSProcessAPI) Launch(exePath string) (int32, error) {
	cmd := exec.Command(exePath)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", exePath, err)
	}

	pid := int32(cmd.Process.Pid)
	go func() { _ = cmd.Wait() }()
	return pid, nil
}
