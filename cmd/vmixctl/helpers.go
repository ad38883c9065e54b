package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vmixctl/internal/apiclient"
)

// resolveInputArg accepts either an input key or a mixer number. Numbers are
// resolved against the current snapshot so the daemon always receives a
// stable key.
func resolveInputArg(cmd *cobra.Command, client *apiclient.Client, arg string) (string, error) {
	number, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}

	view, err := client.View(cmd.Context())
	if err != nil {
		return "", err
	}
	if !view.HasSnapshot {
		return "", fmt.Errorf("no snapshot available to resolve input number %d", number)
	}
	for _, in := range view.Inputs {
		if in.Number == number {
			return in.ID, nil
		}
	}
	return "", fmt.Errorf("no input with number %d", number)
}

func parseLayerArg(arg string) (int, error) {
	layer, err := strconv.Atoi(arg)
	if err != nil || layer < 1 || layer > 4 {
		return 0, fmt.Errorf("layer must be 1-4, got %q", arg)
	}
	return layer, nil
}
