package cli

import (
	"context"
	"fmt"

	"github.com/keylty/pgbranch/internal/diagnostics"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current branch and every branch's recorded state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			status, err := diagnostics.CollectStatus(context.Background(), a.lifecycle.StatePath(), a.project, a.backend)
			if err != nil {
				return err
			}

			printResult(status, func() {
				current := status.CurrentBranch
				if current == "" {
					current = "(none)"
				}
				fmt.Printf("Current branch: %s\n", current)
				fmt.Printf("Backend health: %s\n", status.BackendHealth)
				fmt.Printf("Branches: %d\n", len(status.Branches))
				for _, b := range status.Branches {
					fmt.Printf("  %s\t%s\n", b.Name, b.Status)
				}
			})
			return nil
		},
	}
}
