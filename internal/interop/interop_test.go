package interop

import (
	"context"
	"errors"
	"testing"
)

func TestToRemotePath(t *testing.T) {
	t.Parallel()

	tr := Translator{}
	cases := []struct {
		in   string
		want string
	}{
		{`C:\Users\alice\config.json`, "/mnt/c/Users/alice/config.json"},
		{`c:\Users\alice`, "/mnt/c/Users/alice"},
		{`D:/projects/app`, "/mnt/d/projects/app"},
		{`C:\`, "/mnt/c"},
		{`C:`, "/mnt/c"},
	}
	for _, c := range cases {
		got, err := tr.ToRemotePath(c.in)
		if err != nil {
			t.Fatalf("ToRemotePath(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ToRemotePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToRemotePathRejectsNonDrivePaths(t *testing.T) {
	t.Parallel()

	tr := Translator{}
	for _, in := range []string{"/home/alice", "relative/path", ""} {
		if _, err := tr.ToRemotePath(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestToLocalPath(t *testing.T) {
	t.Parallel()

	tr := Translator{}
	got, err := tr.ToLocalPath("/mnt/c/Users/alice/config.json")
	if err != nil {
		t.Fatalf("ToLocalPath: %v", err)
	}
	if want := `C:\Users\alice\config.json`; got != want {
		t.Fatalf("ToLocalPath = %q, want %q", got, want)
	}
}

func TestToLocalPathOutsideMountRoot(t *testing.T) {
	t.Parallel()

	tr := Translator{}
	if _, err := tr.ToLocalPath("/home/alice/config.json"); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("expected ErrNotMounted, got %v", err)
	}
}

func TestCustomMountRoot(t *testing.T) {
	t.Parallel()

	tr := Translator{MountRoot: "/media/host/"}
	got, err := tr.ToRemotePath(`C:\data`)
	if err != nil {
		t.Fatalf("ToRemotePath: %v", err)
	}
	if got != "/media/host/c/data" {
		t.Fatalf("ToRemotePath = %q", got)
	}

	back, err := tr.ToLocalPath(got)
	if err != nil {
		t.Fatalf("ToLocalPath: %v", err)
	}
	if back != `C:\data` {
		t.Fatalf("ToLocalPath = %q", back)
	}
}

func TestExecCapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	r := Runner{Shell: "/bin/sh"}

	// /bin/sh treats the arguments after -- as a script path, which does not
	// exist, so the shell runs but exits non-zero. That must not be an error.
	res, err := r.Exec(context.Background(), []string{"definitely-missing-script"}, "")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if res.Stderr == "" {
		t.Fatal("expected stderr output")
	}
}

func TestExecRequiresShell(t *testing.T) {
	t.Parallel()

	r := Runner{}
	if _, err := r.Exec(context.Background(), []string{"true"}, ""); err == nil {
		t.Fatal("expected error when shell is not configured")
	}
}

func TestExecRequiresCommand(t *testing.T) {
	t.Parallel()

	r := Runner{Shell: "/bin/sh"}
	if _, err := r.Exec(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for empty command")
	}
}
