package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOverlayCommand(ctx *commandContext) *cobra.Command {
	overlayCmd := &cobra.Command{
		Use:   "overlay",
		Short: "Manage overlay layers",
	}

	overlayCmd.AddCommand(newOverlaySetCommand(ctx))
	overlayCmd.AddCommand(newOverlayClearCommand(ctx))

	return overlayCmd
}

func newOverlaySetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <layer> <input>",
		Short: "Show an input on an overlay layer (1-4)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, err := parseLayerArg(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			input, err := resolveInputArg(cmd, client, args[1])
			if err != nil {
				return err
			}
			resp, err := client.SetOverlay(cmd.Context(), layer, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Overlay %d command %s submitted.\n", layer, resp.ID)
			return nil
		},
	}
}

func newOverlayClearCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [layer]",
		Short: "Clear one overlay layer, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if all || len(args) == 0 {
				if err := client.ClearAllOverlays(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared all active overlays.")
				return nil
			}
			layer, err := parseLayerArg(args[0])
			if err != nil {
				return err
			}
			resp, err := client.ClearOverlay(cmd.Context(), layer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Overlay %d clear command %s submitted.\n", layer, resp.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear every active overlay layer")
	return cmd
}
