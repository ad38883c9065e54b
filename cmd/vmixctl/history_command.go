package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vmixctl/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent command history",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			entries, err := client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No commands recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.SubmittedAt.Local().Format("15:04:05"),
					entry.Kind,
					historyTarget(entry),
					entry.Status,
					entry.Detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Time", "Command", "Target", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	return cmd
}

func historyTarget(entry api.HistoryEntry) string {
	switch {
	case entry.Layer > 0 && entry.InputID != "":
		return fmt.Sprintf("layer %d / %s", entry.Layer, entry.InputID)
	case entry.Layer > 0:
		return "layer " + strconv.Itoa(entry.Layer)
	default:
		return entry.InputID
	}
}
