package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:    running (pid %d, up %s)\n",
				status.PID, formatUptime(status.StartedAt))
			conn := status.Connection
			if !conn.Connected {
				fmt.Fprintln(out, "Session:   disconnected")
				return nil
			}

			health := "healthy"
			if conn.Degraded {
				health = "degraded"
			}
			fmt.Fprintf(out, "Session:   %s:%d (%s)\n", conn.Host, conn.Port, health)
			fmt.Fprintf(out, "Inputs:    %d\n", conn.Inputs)
			fmt.Fprintf(out, "Pending:   %d\n", conn.PendingCount)
			if conn.LastSnapshotAt != nil {
				fmt.Fprintf(out, "Snapshot:  %s ago\n",
					time.Since(*conn.LastSnapshotAt).Round(time.Second))
			}
			return nil
		},
	}
}

func formatUptime(start time.Time) string {
	if start.IsZero() {
		return "unknown"
	}
	return time.Since(start).Round(time.Second).String()
}
