package cliutil

import (
	"os"
	"strings"
)

// Mode is the CLI's operating mode, following the teacher's
// cli.DetectMode convention.
type Mode string

const (
	// ModeInteractive prompts via stdin and prints human-readable text.
	ModeInteractive Mode = "interactive"
	// ModeDashboard reads from environment variables and emits only
	// WriteJSON/WriteLog output, for embedding behind another process.
	ModeDashboard Mode = "dashboard"
)

// DetectMode reads RADIXLEDGER_MODE (case-insensitive), defaulting to
// ModeInteractive for anything else, including unset.
func DetectMode() Mode {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RADIXLEDGER_MODE")))
	if v == "dashboard" {
		return ModeDashboard
	}
	return ModeInteractive
}
