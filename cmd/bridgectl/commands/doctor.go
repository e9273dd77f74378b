package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/deskbridge/internal/doctor"
)

func doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the bridge environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			failed := 0
			for _, c := range doctor.Run(cfg) {
				mark := styleOK.Render("ok  ")
				if !c.OK {
					mark = styleErr.Render("FAIL")
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-18s %s\n", mark, c.Name, styleDim.Render(c.Detail))
			}

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
