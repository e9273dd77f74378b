// Package commands implements the bridgectl command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/config"
)

const clientName = "bridgectl"

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridgectl",
		Short: "Client for the deskbridge daemon",
		Long: `bridgectl submits action records into the bridge's queue directory and
waits for the daemon to publish the outcome. No socket, no server: the
queue directory is the whole wire.

Quick start:
  bridgectl status                       # Is the bridge alive?
  bridgectl add-server tools node x.js   # Register a named server
  bridgectl remove-server tools          # Remove it again
  bridgectl restart                      # Restart the managed app`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "path to the bridge YAML config")
	cmd.PersistentFlags().Duration("timeout", 0, "how long to wait for the bridge to process an action (default from config)")

	cmd.AddCommand(statusCommand())
	cmd.AddCommand(restartCommand())
	cmd.AddCommand(addServerCommand())
	cmd.AddCommand(removeServerCommand())
	cmd.AddCommand(historyCommand())
	cmd.AddCommand(watchCommand())
	cmd.AddCommand(doctorCommand())
	cmd.AddCommand(interopCommand())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd().Execute()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
