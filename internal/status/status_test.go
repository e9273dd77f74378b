package status

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteAndRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bridge_status.json")
	r := NewReporter(path)

	if err := r.Write(StateRunning); err != nil {
		t.Fatalf("Write: %v", err)
	}

	st, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if st == nil {
		t.Fatal("expected a status record")
	}
	if st.State != StateRunning {
		t.Fatalf("state = %s, want running", st.State)
	}
	if st.PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", st.PID, os.Getpid())
	}
	if st.LastHeartbeat == 0 {
		t.Fatal("heartbeat timestamp missing")
	}

	// No stray temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file still present: %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	st, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if st != nil {
		t.Fatalf("expected nil status, got %#v", st)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bridge_status.json")
	staleAfter := 15 * time.Second

	ok, msg := Check(path, staleAfter, time.Now())
	if ok || !strings.Contains(msg, "not found") {
		t.Fatalf("missing file: ok=%v msg=%q", ok, msg)
	}

	r := NewReporter(path)
	if err := r.Write(StateRunning); err != nil {
		t.Fatalf("Write: %v", err)
	}

	ok, msg = Check(path, staleAfter, time.Now())
	if !ok || !strings.Contains(msg, "running") {
		t.Fatalf("fresh heartbeat: ok=%v msg=%q", ok, msg)
	}

	// The same record judged a minute later is stale.
	ok, msg = Check(path, staleAfter, time.Now().Add(time.Minute))
	if ok || !strings.Contains(msg, "not responsive") {
		t.Fatalf("stale heartbeat: ok=%v msg=%q", ok, msg)
	}

	if err := r.Write(StateStopped); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, msg = Check(path, staleAfter, time.Now())
	if ok || !strings.Contains(msg, "stopped") {
		t.Fatalf("stopped state: ok=%v msg=%q", ok, msg)
	}
}
