package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <input>",
		Short: "Select an input into preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			input, err := resolveInputArg(cmd, client, args[0])
			if err != nil {
				return err
			}
			resp, err := client.SelectPreview(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preview command %s submitted.\n", resp.ID)
			return nil
		},
	}
}

func newQuickPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "quickplay",
		Aliases: []string{"take"},
		Short:   "Transition the preview input to program",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.QuickPlay(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Quick play command %s submitted.\n", resp.ID)
			return nil
		},
	}
}

func newFTBCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ftb",
		Short: "Toggle fade to black",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.ToggleFTB(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fade-to-black command %s submitted.\n", resp.ID)
			return nil
		},
	}
}
