package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vmixctl/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the vMix host, then start vmixctld.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vMix host:       %s:%d\n", cfg.Connection.Host, cfg.Connection.Port)
			fmt.Fprintf(out, "Poll interval:   %s (backoff cap %s)\n", cfg.PollInterval(), cfg.BackoffMax())
			fmt.Fprintf(out, "Command timeout: %s (%d retries)\n", cfg.CommandTimeout(), cfg.Commands.MaxRetries)
			fmt.Fprintf(out, "Cut fallback:    %t\n", cfg.Commands.UseCutFallback)
			fmt.Fprintf(out, "API bind:        %s\n", cfg.API.Bind)
			fmt.Fprintf(out, "Data directory:  %s\n", cfg.DataDir)
			fmt.Fprintf(out, "Log level:       %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
			if cfg.Notifications.NtfyTopic != "" {
				fmt.Fprintf(out, "Notifications:   %s\n", cfg.Notifications.NtfyTopic)
			}
			return nil
		},
	}
}
