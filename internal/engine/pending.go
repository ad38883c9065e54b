package engine

import (
	"fmt"
	"strconv"
	"time"

	"vmixctl/internal/vmix"
)

// Status tracks the lifecycle of a pending command.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusTimedOut     Status = "timed_out"
	StatusFailed       Status = "failed"
	StatusSuperseded   Status = "superseded"
)

// PendingCommand is a user command that has been registered with the engine
// but not yet confirmed by a subsequent snapshot.
type PendingCommand struct {
	ID          string
	Command     vmix.Command
	SubmittedAt time.Time
	Status      Status
	// Detail carries the failure reason for terminal non-acknowledged states.
	Detail string
	// WantFadeToBlack is the desired FTB state captured when a toggle was
	// submitted, so confirmation has a concrete value to match against.
	WantFadeToBlack bool
}

// fieldKey names the observable mixer field a command targets. Two pending
// commands with the same field key conflict; the newer one supersedes.
func (p PendingCommand) fieldKey() string {
	switch p.Command.Kind {
	case vmix.KindPreview:
		return "preview"
	case vmix.KindQuickPlay, vmix.KindCut:
		return "program"
	case vmix.KindOverlaySet, vmix.KindOverlayOut:
		return "overlay:" + strconv.Itoa(p.Command.Layer)
	case vmix.KindFadeToBlack:
		return "ftb"
	}
	return string(p.Command.Kind)
}

// StaleTargetError reports a command whose target input is absent from the
// latest snapshot.
type StaleTargetError struct {
	InputID string
}

func (e *StaleTargetError) Error() string {
	return fmt.Sprintf("input %s no longer exists", e.InputID)
}
