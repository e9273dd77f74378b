package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/queue"
	"github.com/mattjoyce/deskbridge/internal/tui/watch"
)

func watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the bridge heartbeat and queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			q, err := queue.Open(cfg.Paths.BridgeDir)
			if err != nil {
				return err
			}

			p := tea.NewProgram(watch.NewModel(cfg, q), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}
