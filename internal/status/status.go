// Package status implements the bridge heartbeat: a single JSON record
// overwritten in place on every tick, read by clients to judge liveness.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// State is the bridge lifecycle state carried in the heartbeat.
type State string

const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateStopped      State = "stopped"
)

// Status is the heartbeat record. LastHeartbeat is epoch seconds.
type Status struct {
	State         State `json:"state"`
	PID           int   `json:"pid"`
	LastHeartbeat int64 `json:"lastHeartbeat"`
}

// Reporter writes the heartbeat record. Not versioned: each write replaces the
// previous one via rename so readers never see a partial record.
type Reporter struct {
	path string
	pid  int
	now  func() time.Time
}

// NewReporter creates a reporter writing to path.
func NewReporter(path string) *Reporter {
	return &Reporter{path: path, pid: os.Getpid(), now: time.Now}
}

// Write records the current state and heartbeat timestamp.
func (r *Reporter) Write(state State) error {
	st := Status{State: state, PID: r.pid, LastHeartbeat: r.now().Unix()}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bridge status: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write bridge status: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish bridge status: %w", err)
	}
	return nil
}

// Read loads the heartbeat record, or nil if none has been written.
func Read(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bridge status: %w", err)
	}

	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode bridge status: %w", err)
	}
	return &st, nil
}

// Check judges bridge responsiveness from the heartbeat at path. A heartbeat
// older than staleAfter, a stopped state, or a missing record all count as
// unresponsive; the message explains which.
func Check(path string, staleAfter time.Duration, now time.Time) (ok bool, message string) {
	st, err := Read(path)
	if err != nil {
		return false, fmt.Sprintf("cannot read bridge status: %v", err)
	}
	if st == nil {
		return false, "bridge status file not found; is the bridge running?"
	}

	age := now.Sub(time.Unix(st.LastHeartbeat, 0))
	if age > staleAfter {
		return false, fmt.Sprintf("bridge not responsive; last heartbeat %ds ago", int(age.Seconds()))
	}
	if st.State != StateRunning {
		return false, fmt.Sprintf("bridge is %s (pid %d)", st.State, st.PID)
	}
	return true, fmt.Sprintf("bridge is running (pid %d)", st.PID)
}
