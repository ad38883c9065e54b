package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vmixctl/internal/api"
)

type streamEvent struct {
	Type         string              `json:"type"`
	Command      *api.PendingCommand `json:"command,omitempty"`
	Connectivity string              `json:"connectivity,omitempty"`
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var showSnapshots bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live session events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Watching session events (Ctrl-C to stop)...")
			return client.Events(cmd.Context(), func(raw json.RawMessage) {
				var ev streamEvent
				if err := json.Unmarshal(raw, &ev); err != nil {
					return
				}
				if ev.Type == "snapshot" && !showSnapshots {
					return
				}
				fmt.Fprintf(out, "%s  %s\n",
					time.Now().Format("15:04:05"), describeEvent(ev))
			})
		},
	}
	cmd.Flags().BoolVar(&showSnapshots, "snapshots", false, "Include per-poll snapshot events")
	return cmd
}

func describeEvent(ev streamEvent) string {
	switch ev.Type {
	case "snapshot":
		return "snapshot refreshed"
	case "connectivity":
		return "connectivity " + ev.Connectivity
	case "reset":
		return "session reset"
	case "command_submitted", "command_resolved":
		if ev.Command == nil {
			return ev.Type
		}
		desc := fmt.Sprintf("%s %s", ev.Command.Kind, ev.Command.Status)
		if ev.Command.InputID != "" {
			desc += " input=" + ev.Command.InputID
		}
		if ev.Command.Layer > 0 {
			desc += fmt.Sprintf(" layer=%d", ev.Command.Layer)
		}
		if ev.Command.Detail != "" {
			desc += " (" + ev.Command.Detail + ")"
		}
		return desc
	default:
		return ev.Type
	}
}
