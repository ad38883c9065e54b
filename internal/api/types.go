// Package api defines the JSON DTOs shared by the daemon HTTP server and
// its clients (the CLI and any UI front-end).
package api

import (
	"time"

	"vmixctl/internal/engine"
	"vmixctl/internal/history"
	"vmixctl/internal/state"
)

// Input is the wire form of one mixer input.
type Input struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	Short  string `json:"short,omitempty"`
	Type   string `json:"type,omitempty"`
	State  string `json:"state,omitempty"`
}

// PendingCommand is the wire form of an unresolved command.
type PendingCommand struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	InputID     string    `json:"input_id,omitempty"`
	Layer       int       `json:"layer,omitempty"`
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// View is the merged optimistic view served to UI layers.
type View struct {
	HasSnapshot bool             `json:"has_snapshot"`
	ActiveID    string           `json:"active_id,omitempty"`
	PreviewID   string           `json:"preview_id,omitempty"`
	Overlays    [4]string        `json:"overlays"`
	FadeToBlack bool             `json:"fade_to_black"`
	Inputs      []Input          `json:"inputs"`
	Pending     []PendingCommand `json:"pending"`
	CapturedAt  *time.Time       `json:"captured_at,omitempty"`
}

// CommandRequest targets an input.
type CommandRequest struct {
	Input string `json:"input"`
}

// CommandResponse acknowledges a registered command.
type CommandResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ConnectRequest switches the session target.
type ConnectRequest struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// HistoryEntry is the wire form of a command audit record.
type HistoryEntry struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	InputID     string     `json:"input_id,omitempty"`
	Layer       int        `json:"layer,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Status      string     `json:"status"`
	Detail      string     `json:"detail,omitempty"`
}

// Profile is the wire form of a saved connection target.
type Profile struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ErrorResponse carries an error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConnectionStatus mirrors the controller's session summary.
type ConnectionStatus struct {
	Connected      bool       `json:"connected"`
	Host           string     `json:"host"`
	Port           int        `json:"port"`
	Degraded       bool       `json:"degraded"`
	PendingCount   int        `json:"pending_count"`
	Inputs         int        `json:"inputs"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	LastSnapshotAt *time.Time `json:"last_snapshot_at,omitempty"`
}

// DaemonStatus mirrors the daemon's runtime summary.
type DaemonStatus struct {
	Running    bool             `json:"running"`
	PID        int              `json:"pid"`
	StartedAt  time.Time        `json:"started_at"`
	LockPath   string           `json:"lock_path"`
	DBPath     string           `json:"db_path"`
	APIBind    string           `json:"api_bind"`
	Connection ConnectionStatus `json:"connection"`
}

// ViewFromEngine converts the engine's merged view to wire form.
func ViewFromEngine(view engine.View) View {
	out := View{
		HasSnapshot: view.Snapshot != nil,
		ActiveID:    view.ActiveID,
		PreviewID:   view.PreviewID,
		FadeToBlack: view.FadeToBlack,
		Inputs:      []Input{},
		Pending:     []PendingCommand{},
	}
	copy(out.Overlays[:], view.Overlays[:])
	if view.Snapshot != nil {
		captured := view.Snapshot.CapturedAt
		out.CapturedAt = &captured
		for _, in := range view.Snapshot.Inputs {
			out.Inputs = append(out.Inputs, InputFromState(in))
		}
	}
	for _, pc := range view.Pending {
		out.Pending = append(out.Pending, PendingFromEngine(pc))
	}
	return out
}

// InputFromState converts a snapshot input to wire form.
func InputFromState(in state.Input) Input {
	return Input{
		ID:     in.ID,
		Number: in.Number,
		Name:   in.Name,
		Short:  in.Short,
		Type:   in.Type,
		State:  in.State,
	}
}

// PendingFromEngine converts a pending command to wire form.
func PendingFromEngine(pc engine.PendingCommand) PendingCommand {
	return PendingCommand{
		ID:          pc.ID,
		Kind:        string(pc.Command.Kind),
		InputID:     pc.Command.Input,
		Layer:       pc.Command.Layer,
		Status:      string(pc.Status),
		Detail:      pc.Detail,
		SubmittedAt: pc.SubmittedAt,
	}
}

// HistoryFromStore converts a history entry to wire form.
func HistoryFromStore(entry history.Entry) HistoryEntry {
	return HistoryEntry{
		ID:          entry.ID,
		Kind:        entry.Kind,
		InputID:     entry.InputID,
		Layer:       entry.Layer,
		SubmittedAt: entry.SubmittedAt,
		ResolvedAt:  entry.ResolvedAt,
		Status:      entry.Status,
		Detail:      entry.Detail,
	}
}
