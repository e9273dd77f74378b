package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/action"
	"github.com/mattjoyce/deskbridge/internal/history"
)

func historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent actions from the bridge's history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := history.Open(cmd.Context(), cfg.HistoryFile())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), styleDim.Render("No recorded actions yet."))
				return nil
			}

			for _, e := range entries {
				line := fmt.Sprintf("%s  %-14s %-9s %s",
					e.CompletedAt.Local().Format("2006-01-02 15:04:05"),
					e.Kind, e.Status, outcome(e))
				if e.Status == action.StatusFailed {
					fmt.Fprintln(cmd.OutOrStdout(), styleErr.Render(line))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries to show")
	return cmd
}

func outcome(e history.Entry) string {
	if e.Status == action.StatusFailed {
		return e.Error
	}
	return e.Result
}
