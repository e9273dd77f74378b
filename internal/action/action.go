// Package action defines the record exchanged between the client and the
// bridge: a queued request plus its eventual outcome.
package action

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Kind is the closed set of operations the bridge executes.
type Kind string

const (
	KindAddServer    Kind = "add_server"
	KindRemoveServer Kind = "remove_server"
	KindRestartApp   Kind = "restart_app"
)

// Known reports whether k is one of the kinds this bridge understands.
func (k Kind) Known() bool {
	switch k {
	case KindAddServer, KindRemoveServer, KindRestartApp:
		return true
	}
	return false
}

// Status is the record lifecycle state. Completed and failed are terminal;
// a record never transitions back to pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Params carries the kind-specific payload. Name and Config are used by the
// server actions; restart_app carries no parameters.
type Params struct {
	Name      string          `json:"name,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
	AutoStart bool            `json:"autoStart,omitempty"`
}

// Record is the file-backed action record. SubmittedAt is epoch seconds set by
// the client. Result and Error are mutually exclusive and populated only on
// terminal records.
type Record struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"action"`
	Params      Params `json:"params"`
	Status      Status `json:"status"`
	SubmittedAt int64  `json:"submittedAt"`
	Result      string `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	Client      string `json:"client,omitempty"`
}

// ErrValidation marks user-correctable parameter problems.
var ErrValidation = errors.New("invalid action parameters")

// Validate checks the record's kind and its kind-specific parameters.
func (r *Record) Validate() error {
	if !r.Kind.Known() {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, r.Kind)
	}

	switch r.Kind {
	case KindAddServer:
		if r.Params.Name == "" {
			return fmt.Errorf("%w: add_server requires a non-empty name", ErrValidation)
		}
		if len(r.Params.Config) == 0 || !gjson.ParseBytes(r.Params.Config).IsObject() {
			return fmt.Errorf("%w: add_server requires a JSON object config", ErrValidation)
		}
	case KindRemoveServer:
		if r.Params.Name == "" {
			return fmt.Errorf("%w: remove_server requires a non-empty name", ErrValidation)
		}
	case KindRestartApp:
		// No parameters.
	}
	return nil
}

// Encode renders the record in the indented form both sides of the bridge
// read and write.
func (r *Record) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode action record: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a stored record.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode action record: %w", err)
	}
	return &r, nil
}
