package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/action"
	"github.com/mattjoyce/deskbridge/internal/config"
	"github.com/mattjoyce/deskbridge/internal/queue"
	"github.com/mattjoyce/deskbridge/internal/status"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// confirmIfStale warns when the bridge heartbeat looks stale and asks whether
// to proceed anyway. Declining is informational, not a failure.
func confirmIfStale(cmd *cobra.Command, cfg *config.Config) (proceed bool, err error) {
	ok, message := status.Check(cfg.StatusFile(), cfg.Service.StatusStaleAfter, time.Now())
	if ok {
		return true, nil
	}

	fmt.Fprintln(cmd.ErrOrStderr(), styleWarn.Render("Warning: "+message))

	proceed = false
	confirm := huh.NewConfirm().
		Title("The bridge appears unresponsive. Submit the action anyway?").
		Affirmative("Yes, submit").
		Negative("Cancel").
		Value(&proceed)

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}
	if !proceed {
		fmt.Fprintln(cmd.OutOrStdout(), styleDim.Render("Nothing submitted."))
	}
	return proceed, nil
}

// submitAndWait writes the action record, then polls for its terminal record.
func submitAndWait(cmd *cobra.Command, cfg *config.Config, kind action.Kind, params action.Params) error {
	proceed, err := confirmIfStale(cmd, cfg)
	if err != nil || !proceed {
		return err
	}

	q, err := queue.Open(cfg.Paths.BridgeDir)
	if err != nil {
		return err
	}
	q.PollInterval = cfg.Service.ResultPollInterval

	id, err := q.Submit(kind, params, clientName)
	if err != nil {
		return fmt.Errorf("submit action: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Action %s (%s) submitted.\n", string(kind), styleDim.Render(shortID(id)))
	fmt.Fprintln(cmd.OutOrStdout(), styleDim.Render("... waiting for the bridge to process ..."))

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = cfg.Service.ResultWaitTimeout
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rec, err := q.WaitForResult(ctx, id, timeout)
	if err != nil {
		return fmt.Errorf("wait for result: %w", err)
	}
	if rec == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), styleWarn.Render(
			"Timeout: the bridge did not process the action in time. It may still complete; check later with 'bridgectl history'."))
		return fmt.Errorf("timed out after %s", timeout)
	}

	switch rec.Status {
	case action.StatusCompleted:
		fmt.Fprintln(cmd.OutOrStdout(), styleOK.Render("SUCCESS: "+rec.Result))
		return nil
	default:
		fmt.Fprintln(cmd.ErrOrStderr(), styleErr.Render("FAILED: "+rec.Error))
		return fmt.Errorf("action failed")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
