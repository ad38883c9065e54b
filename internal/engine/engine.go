package engine

import (
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"vmixctl/internal/logging"
	"vmixctl/internal/state"
	"vmixctl/internal/vmix"
)

// EventType classifies change events emitted by the engine.
type EventType string

const (
	// EventSnapshot fires after every successful snapshot ingestion.
	EventSnapshot EventType = "snapshot"
	// EventCommandSubmitted fires when a command is registered.
	EventCommandSubmitted EventType = "command_submitted"
	// EventCommandResolved fires when a pending command reaches a terminal
	// status (acknowledged, failed, timed out, superseded).
	EventCommandResolved EventType = "command_resolved"
	// EventReset fires when the engine is cleared for a reconnect.
	EventReset EventType = "reset"
)

// Event describes one observable change. Command is set for command events.
type Event struct {
	Type    EventType
	Command *PendingCommand
}

// View is the merged display state: the last confirmed snapshot with
// unresolved pending commands overlaid, so in-flight intent never flickers
// back to the stale confirmed value.
type View struct {
	Snapshot    *state.Snapshot
	Pending     []PendingCommand
	ActiveID    string
	PreviewID   string
	Overlays    [state.OverlayLayers]string
	FadeToBlack bool
}

const defaultCommandTimeout = 3 * time.Second

// Engine reconciles polled snapshots against locally submitted commands.
type Engine struct {
	logger  *slog.Logger
	timeout time.Duration
	sink    func(Event)

	mu       sync.Mutex
	snapshot *state.Snapshot
	pending  []*PendingCommand
}

// New builds an engine. sink receives change events and may be nil; it is
// invoked outside the engine lock and must not block for long.
func New(timeout time.Duration, logger *slog.Logger, sink func(Event)) *Engine {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		logger:  logger.With(logging.String("component", "engine")),
		timeout: timeout,
		sink:    sink,
	}
}

// Submit registers a command before dispatch so the optimistic view reflects
// it immediately. A command whose target input is absent from the latest
// snapshot is refused with StaleTargetError. An older unresolved command
// targeting the same field is superseded and dropped without being marked
// failed.
func (e *Engine) Submit(cmd vmix.Command) (PendingCommand, error) {
	e.mu.Lock()

	if cmd.NeedsInput() && e.snapshot != nil && !e.snapshot.HasInput(cmd.Input) {
		e.mu.Unlock()
		return PendingCommand{}, &StaleTargetError{InputID: cmd.Input}
	}

	pc := &PendingCommand{
		ID:          uuid.NewString(),
		Command:     cmd,
		SubmittedAt: time.Now().UTC(),
		Status:      StatusPending,
	}
	if cmd.Kind == vmix.KindFadeToBlack {
		pc.WantFadeToBlack = !e.effectiveFTBLocked()
	}

	key := pc.fieldKey()
	var superseded []PendingCommand
	kept := e.pending[:0]
	for _, existing := range e.pending {
		if existing.fieldKey() == key {
			existing.Status = StatusSuperseded
			e.logger.Debug("pending command superseded",
				logging.String("command", existing.Command.String()),
				logging.String("id", existing.ID))
			superseded = append(superseded, *existing)
			continue
		}
		kept = append(kept, existing)
	}
	e.pending = append(kept, pc)

	snapshot := *pc
	e.mu.Unlock()

	for i := range superseded {
		e.emit(Event{Type: EventCommandResolved, Command: &superseded[i]})
	}
	e.emit(Event{Type: EventCommandSubmitted, Command: &snapshot})
	return snapshot, nil
}

// IngestSnapshot atomically replaces the authoritative snapshot and
// reconciles every unresolved pending command against it.
func (e *Engine) IngestSnapshot(snap *state.Snapshot) {
	if snap == nil {
		return
	}

	e.mu.Lock()
	e.snapshot = snap

	now := time.Now().UTC()
	var resolved []PendingCommand
	kept := e.pending[:0]
	for _, pc := range e.pending {
		switch {
		case confirmed(snap, pc):
			pc.Status = StatusAcknowledged
			resolved = append(resolved, *pc)
		case pc.Command.NeedsInput() && !snap.HasInput(pc.Command.Input):
			pc.Status = StatusFailed
			pc.Detail = (&StaleTargetError{InputID: pc.Command.Input}).Error()
			e.logger.Warn("pending command target vanished",
				logging.String("command", pc.Command.String()),
				logging.String("id", pc.ID))
			resolved = append(resolved, *pc)
		case now.Sub(pc.SubmittedAt) > e.timeout:
			pc.Status = StatusTimedOut
			pc.Detail = "no confirming snapshot within timeout"
			e.logger.Warn("pending command timed out",
				logging.String("command", pc.Command.String()),
				logging.Duration("age", now.Sub(pc.SubmittedAt)),
				logging.String("id", pc.ID))
			resolved = append(resolved, *pc)
		default:
			kept = append(kept, pc)
		}
	}
	e.pending = kept
	e.mu.Unlock()

	for i := range resolved {
		e.emit(Event{Type: EventCommandResolved, Command: &resolved[i]})
	}
	e.emit(Event{Type: EventSnapshot})
}

// Fail marks a pending command failed, typically after the dispatcher
// exhausted retries or vMix rejected the command.
func (e *Engine) Fail(id, detail string) {
	e.mu.Lock()
	var failed *PendingCommand
	kept := e.pending[:0]
	for _, pc := range e.pending {
		if pc.ID == id {
			pc.Status = StatusFailed
			pc.Detail = detail
			copied := *pc
			failed = &copied
			continue
		}
		kept = append(kept, pc)
	}
	e.pending = kept
	e.mu.Unlock()

	if failed != nil {
		e.emit(Event{Type: EventCommandResolved, Command: failed})
	}
}

// Reset clears the snapshot and fails every in-flight command. Used when the
// connection target changes; polling restarts from scratch afterwards.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.snapshot = nil
	failed := make([]PendingCommand, 0, len(e.pending))
	for _, pc := range e.pending {
		pc.Status = StatusFailed
		pc.Detail = "connection reset"
		failed = append(failed, *pc)
	}
	e.pending = nil
	e.mu.Unlock()

	for i := range failed {
		e.emit(Event{Type: EventCommandResolved, Command: &failed[i]})
	}
	e.emit(Event{Type: EventReset})
}

// CurrentView returns the merged snapshot-plus-pending view. Pending
// commands are applied in submission order, so the newest command targeting
// a field wins.
func (e *Engine) CurrentView() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := View{Snapshot: e.snapshot}
	if e.snapshot != nil {
		view.ActiveID = e.snapshot.ActiveID
		view.PreviewID = e.snapshot.PreviewID
		view.Overlays = e.snapshot.Overlays
		view.FadeToBlack = e.snapshot.FadeToBlack
	}

	view.Pending = make([]PendingCommand, 0, len(e.pending))
	for _, pc := range e.pending {
		view.Pending = append(view.Pending, *pc)
		switch pc.Command.Kind {
		case vmix.KindPreview:
			view.PreviewID = pc.Command.Input
		case vmix.KindQuickPlay, vmix.KindCut:
			view.ActiveID = pc.Command.Input
		case vmix.KindOverlaySet:
			view.Overlays[pc.Command.Layer-1] = pc.Command.Input
		case vmix.KindOverlayOut:
			view.Overlays[pc.Command.Layer-1] = ""
		case vmix.KindFadeToBlack:
			view.FadeToBlack = pc.WantFadeToBlack
		}
	}
	return view
}

// PendingCount returns the number of unresolved commands.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Snapshot returns the last confirmed snapshot, nil before the first
// successful poll.
func (e *Engine) Snapshot() *state.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

func (e *Engine) effectiveFTBLocked() bool {
	ftb := false
	if e.snapshot != nil {
		ftb = e.snapshot.FadeToBlack
	}
	for _, pc := range e.pending {
		if pc.Command.Kind == vmix.KindFadeToBlack {
			ftb = pc.WantFadeToBlack
		}
	}
	return ftb
}

func (e *Engine) emit(ev Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

// confirmed reports whether the snapshot shows the command's intended effect.
func confirmed(snap *state.Snapshot, pc *PendingCommand) bool {
	switch pc.Command.Kind {
	case vmix.KindPreview:
		return snap.PreviewID == pc.Command.Input
	case vmix.KindQuickPlay, vmix.KindCut:
		return snap.ActiveID == pc.Command.Input
	case vmix.KindOverlaySet:
		return snap.Overlay(pc.Command.Layer) == pc.Command.Input
	case vmix.KindOverlayOut:
		return snap.Overlay(pc.Command.Layer) == ""
	case vmix.KindFadeToBlack:
		return snap.FadeToBlack == pc.WantFadeToBlack
	}
	return false
}
