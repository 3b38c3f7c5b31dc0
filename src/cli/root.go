// Package cli holds the maharani command line: the API server and its
// maintenance commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "maharani",
		Short:         "Maharani Store order service",
		Long:          "Order lifecycle and stock reservation service for the Maharani Store grocery shop.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newReplayCmd())
	return cmd
}

func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}
