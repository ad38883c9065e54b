package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vmixctl/internal/api"
)

func newInputsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inputs",
		Short: "List mixer inputs with preview/program markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.View(cmd.Context())
			if err != nil {
				return err
			}
			if !view.HasSnapshot {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshot yet; daemon may still be connecting.")
				return nil
			}

			rows := make([][]string, 0, len(view.Inputs))
			for _, in := range view.Inputs {
				rows = append(rows, []string{
					strconv.Itoa(in.Number),
					inputMarker(in.ID, view),
					in.Name,
					formatInputType(in.Type),
					in.State,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "", "Name", "Type", "State"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

// inputMarker flags the rows currently in program (PGM), preview (PVW), or on
// an overlay layer.
func inputMarker(id string, view *api.View) string {
	var marks []string
	if id == view.ActiveID {
		marks = append(marks, "PGM")
	}
	if id == view.PreviewID {
		marks = append(marks, "PVW")
	}
	for i, overlay := range view.Overlays {
		if overlay == id {
			marks = append(marks, fmt.Sprintf("OVL%d", i+1))
		}
	}
	return strings.Join(marks, ",")
}

var inputTypeCaser = cases.Title(language.English)

func formatInputType(raw string) string {
	if raw == "" {
		return ""
	}
	return inputTypeCaser.String(strings.ToLower(raw))
}
