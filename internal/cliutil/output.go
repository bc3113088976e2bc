// Package cliutil carries the demo CLI's dashboard-mode output
// convention forward from the teacher's internal/cli/output.go:
// machine-readable JSON on stdout, human-readable progress on stderr,
// so a caller can pipe stdout straight into another tool while a human
// watches stderr.
package cliutil

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/radixdlt/ledger-core/internal/model"
)

// WriteJSON marshals v to a single JSON line on stdout.
func WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cliutil: marshal JSON: %w", err)
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", data)
	return err
}

// WriteLog writes a human-readable line to stderr.
func WriteLog(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(os.Stderr, format+"\n", args...)
	return err
}

// trackingEventView is the JSON-friendly projection of a
// model.TrackingEvent: payload pointers collapse to plain fields so
// the dashboard's JSON consumer doesn't need Go-specific null-pointer
// handling.
type trackingEventView struct {
	Phase    model.Phase `json:"phase"`
	At       time.Time   `json:"at"`
	TxID     string      `json:"txId,omitempty"`
	Status   string      `json:"status,omitempty"`
	Error    string      `json:"error,omitempty"`
	ErrPhase model.Phase `json:"errPhase,omitempty"`
}

// WriteTrackingEvent renders one tracking event to stdout as JSON and
// a short summary line to stderr.
func WriteTrackingEvent(e model.TrackingEvent) error {
	view := trackingEventView{Phase: e.Phase, At: e.At}
	switch {
	case e.Finalized != nil:
		view.TxID = e.Finalized.TxID
	case e.Pending != nil:
		view.TxID = e.Pending.TxID
	case e.Status != nil:
		view.TxID = e.Status.TxID
		view.Status = string(e.Status.Status)
	}
	if e.IsError() {
		view.Error = e.Err.Error()
		view.ErrPhase = e.ErrPhase
	}

	if err := WriteJSON(view); err != nil {
		return err
	}
	if e.IsError() {
		return WriteLog("[%s] error during %s: %v", e.Phase, e.ErrPhase, e.Err)
	}
	return WriteLog("[%s]", e.Phase)
}
