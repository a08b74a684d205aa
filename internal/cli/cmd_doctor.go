package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Reconcile the State Store against the backend",
		Long: `Doctor checks for branches left stuck mid two-phase write by an
interrupted operation, and for branches the State Store believes are
live that the backend no longer reports. Read-only unless --fix.

Examples:
  pgbranch doctor
  pgbranch doctor --fix`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			fix, _ := cmd.Flags().GetBool("fix")
			report, err := a.doctor().Run(context.Background(), fix)
			if err != nil {
				return err
			}

			printResult(report, func() {
				if len(report.Findings) == 0 {
					fmt.Println("Everything looks healthy")
					return
				}
				newByKey := make(map[string]bool, len(report.New))
				for _, f := range report.New {
					newByKey[f.Branch+"\x00"+f.Message] = true
				}
				for _, f := range report.Findings {
					label := f.Branch
					if label == "" {
						label = "-"
					}
					marker := ""
					if newByKey[f.Branch+"\x00"+f.Message] {
						marker = " (new)"
					}
					fmt.Printf("[%s] %s: %s%s\n", f.Severity, label, f.Message, marker)
				}
			})
			return nil
		},
	}
	cmd.Flags().Bool("fix", false, "remove orphaned pending markers from the State Store")
	return cmd
}
