// Package interop holds helpers for the host/guest interop subsystem:
// translating paths between a drive-lettered host filesystem and its mount
// inside a guest environment, and running commands in the guest. These are
// used by auxiliary tooling only; the action protocol never touches them.
package interop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrNotMounted means a path does not live under the guest mount root and so
// has no host equivalent.
var ErrNotMounted = errors.New("path is not under the guest mount root")

var driveRe = regexp.MustCompile(`^([A-Za-z]):[/\\]?(.*)$`)

// Translator converts paths between host form (C:\Users\x) and guest form
// (<MountRoot>/c/Users/x).
type Translator struct {
	// MountRoot is where host drives appear inside the guest, e.g. "/mnt".
	MountRoot string
}

// ToRemotePath converts a drive-lettered host path to its guest mount path.
func (t Translator) ToRemotePath(local string) (string, error) {
	m := driveRe.FindStringSubmatch(local)
	if m == nil {
		return "", fmt.Errorf("not a drive-lettered path: %q", local)
	}

	drive := strings.ToLower(m[1])
	rest := strings.ReplaceAll(m[2], `\`, "/")
	if rest == "" {
		return fmt.Sprintf("%s/%s", t.root(), drive), nil
	}
	return fmt.Sprintf("%s/%s/%s", t.root(), drive, rest), nil
}

// ToLocalPath converts a guest mount path back to host form.
func (t Translator) ToLocalPath(remote string) (string, error) {
	prefix := t.root() + "/"
	if !strings.HasPrefix(remote, prefix) {
		return "", fmt.Errorf("%w: %q", ErrNotMounted, remote)
	}

	rest := strings.TrimPrefix(remote, prefix)
	drive, path, _ := strings.Cut(rest, "/")
	if len(drive) != 1 {
		return "", fmt.Errorf("%w: %q", ErrNotMounted, remote)
	}

	local := strings.ToUpper(drive) + ":\\" + strings.ReplaceAll(path, "/", `\`)
	return local, nil
}

func (t Translator) root() string {
	if t.MountRoot == "" {
		return "/mnt"
	}
	return strings.TrimRight(t.MountRoot, "/")
}

// ExecResult carries the outcome of a guest command.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes commands inside the guest through a shell entry command
// (for example "wsl.exe").
type Runner struct {
	Shell string
}

// Exec runs argv in the guest. A non-empty target selects the guest instance.
// A command that runs but exits non-zero is not an error; the exit code is in
// the result.
func (r Runner) Exec(ctx context.Context, argv []string, target string) (ExecResult, error) {
	if r.Shell == "" {
		return ExecResult{}, fmt.Errorf("interop shell command is not configured")
	}
	if len(argv) == 0 {
		return ExecResult{}, fmt.Errorf("empty command")
	}

	args := make([]string, 0, len(argv)+3)
	if target != "" {
		args = append(args, "--distribution", target)
	}
	args = append(args, "--")
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, r.Shell, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("run guest command: %w", err)
	}
	return res, nil
}
