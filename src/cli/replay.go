package cli

import (
	"encoding/json"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"

	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay-events",
		Short: "Republish stored events that could not be delivered",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, log.NewLogger(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.orderService.ReplayFailedEvents(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
