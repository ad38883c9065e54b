package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newConnectCommand(ctx *commandContext) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "connect [host[:port]]",
		Short: "Point the daemon at a vMix host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var host string
			var port int
			switch {
			case profile != "":
				if len(args) > 0 {
					return fmt.Errorf("pass either a host or --profile, not both")
				}
				profiles, err := client.Profiles(cmd.Context())
				if err != nil {
					return err
				}
				found := false
				for _, p := range profiles {
					if p.Name == profile {
						host, port = p.Host, p.Port
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("no profile named %q", profile)
				}
			case len(args) == 1:
				host, port, err = splitHostPort(args[0])
				if err != nil {
					return err
				}
			}

			if err := client.Connect(cmd.Context(), host, port); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon reconnecting.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Connect using a saved profile")
	return cmd
}

func newDisconnectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Drop the daemon's vMix session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Disconnect(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session disconnected.")
			return nil
		},
	}
}

// splitHostPort accepts "host" or "host:port"; a missing port means the
// daemon keeps its configured one.
func splitHostPort(arg string) (string, int, error) {
	if !strings.Contains(arg, ":") {
		return arg, 0, nil
	}
	host, portStr, err := net.SplitHostPort(arg)
	if err != nil {
		return "", 0, fmt.Errorf("parse host %q: %w", arg, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
