package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/action"
)

func restartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the managed application",
		Long: `Submits a restart_app action. The bridge terminates every process whose
executable matches the configured path, waits for voluntary exit, kills
survivors, then launches a fresh instance.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return submitAndWait(cmd, cfg, action.KindRestartApp, action.Params{})
		},
	}
}

func addServerCommand() *cobra.Command {
	var autoStart bool

	cmd := &cobra.Command{
		Use:   "add-server <name> <command> <script-path>",
		Short: "Add or update a named server entry in the app config",
		Long: `Submits an add_server action. The server entry is upserted into
namedServers under the given name:

  bridgectl add-server my-tools node /path/to/server.js

With --auto-start the name is also appended to autoStart.servers.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			serverCfg, err := json.Marshal(map[string]any{
				"command":  args[1],
				"args":     []string{args[2]},
				"env":      map[string]string{},
				"disabled": false,
			})
			if err != nil {
				return fmt.Errorf("encode server config: %w", err)
			}

			return submitAndWait(cmd, cfg, action.KindAddServer, action.Params{
				Name:      args[0],
				Config:    serverCfg,
				AutoStart: autoStart,
			})
		},
	}

	cmd.Flags().BoolVar(&autoStart, "auto-start", false, "also add the server to the autostart list")
	return cmd
}

func removeServerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-server <name>",
		Short: "Remove a named server entry from the app config",
		Long: `Submits a remove_server action. The entry is deleted from namedServers
and purged from autoStart.servers. Removing a name that does not exist
reports "not found" and still completes successfully.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return submitAndWait(cmd, cfg, action.KindRemoveServer, action.Params{Name: args[0]})
		},
	}
}
