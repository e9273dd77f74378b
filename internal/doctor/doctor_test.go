package doctor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/deskbridge/internal/config"
	"github.com/mattjoyce/deskbridge/internal/status"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Defaults()
	cfg.Paths.BridgeDir = filepath.Join(root, "bridge")
	cfg.Paths.ConfigFile = filepath.Join(root, "app_config.json")
	cfg.Paths.BackupDir = root
	return cfg
}

func byName(t *testing.T, checks []Check, name string) Check {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q", name)
	return Check{}
}

func TestRunHealthyEnvironment(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	if err := os.WriteFile(cfg.Paths.ConfigFile,
		[]byte(`{"namedServers":{"a":{},"b":{}}}`), 0o644); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	exe := filepath.Join(t.TempDir(), "desktop")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write exe: %v", err)
	}
	cfg.App.Executable = exe

	if err := os.MkdirAll(cfg.Paths.BridgeDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := status.NewReporter(cfg.StatusFile()).Write(status.StateRunning); err != nil {
		t.Fatalf("write status: %v", err)
	}

	checks := Run(cfg)
	if len(checks) != 4 {
		t.Fatalf("got %d checks", len(checks))
	}
	for _, c := range checks {
		if !c.OK {
			t.Fatalf("check %q failed: %s", c.Name, c.Detail)
		}
	}

	if c := byName(t, checks, "app config"); !strings.Contains(c.Detail, "2 named servers") {
		t.Fatalf("app config detail = %q", c.Detail)
	}
}

func TestRunReportsFailures(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	// No app config, no executable, no heartbeat.

	checks := Run(cfg)

	if c := byName(t, checks, "queue directories"); !c.OK {
		t.Fatalf("queue check should create directories: %s", c.Detail)
	}
	if c := byName(t, checks, "app config"); c.OK {
		t.Fatal("app config check should fail for a missing file")
	}
	if c := byName(t, checks, "app executable"); c.OK || !strings.Contains(c.Detail, "not configured") {
		t.Fatalf("executable check = %+v", c)
	}
	if c := byName(t, checks, "bridge heartbeat"); c.OK {
		t.Fatal("heartbeat check should fail with no status file")
	}
}
