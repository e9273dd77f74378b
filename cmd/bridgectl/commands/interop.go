package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/interop"
)

func interopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interop",
		Short: "Host/guest path translation and command helpers",
		Long: `Utilities for working across the host/guest boundary: translating paths
between drive-lettered host form and their mount inside the guest, and
running commands in the guest environment. These never touch the action
queue.`,
	}

	cmd.AddCommand(toRemoteCommand())
	cmd.AddCommand(toLocalCommand())
	cmd.AddCommand(interopRunCommand())
	return cmd
}

func toRemoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "to-remote <host-path>",
		Short: "Translate a drive-lettered host path to its guest mount path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			tr := interop.Translator{MountRoot: cfg.Interop.MountRoot}
			remote, err := tr.ToRemotePath(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), remote)
			return nil
		},
	}
}

func toLocalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "to-local <guest-path>",
		Short: "Translate a guest mount path back to host form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			tr := interop.Translator{MountRoot: cfg.Interop.MountRoot}
			local, err := tr.ToLocalPath(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), local)
			return nil
		},
	}
}

func interopRunCommand() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a command in the guest environment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			r := interop.Runner{Shell: cfg.Interop.ShellCommand}
			res, err := r.Exec(cmd.Context(), args, target)
			if err != nil {
				return err
			}

			if res.Stdout != "" {
				fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
			}
			if res.Stderr != "" {
				fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
			}
			if res.ExitCode != 0 {
				return fmt.Errorf("command exited with status %d", res.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "guest instance to run in (default instance when empty)")
	return cmd
}
