package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/status"
)

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the bridge daemon is alive",
		Long: `Reads the bridge's heartbeat record and reports liveness. A heartbeat
older than the configured staleness threshold counts as unresponsive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ok, message := status.Check(cfg.StatusFile(), cfg.Service.StatusStaleAfter, time.Now())
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), styleOK.Render(message))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), styleErr.Render(message))
			}
			return nil
		},
	}
}
