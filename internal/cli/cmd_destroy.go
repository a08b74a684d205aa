package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDestroyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every branch in this project, including the root",
		Long: `Destroy tears down every branch this project has, leaf-first so no
backend ever sees a delete for a branch with live children, then
removes the project from the State Store entirely.

Example:
  pgbranch destroy --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			force, _ := cmd.Flags().GetBool("force")
			if !force && !jsonOut && !confirm("Destroy every branch in this project?") {
				return fmt.Errorf("aborted")
			}

			if err := a.lifecycle.Destroy(context.Background()); err != nil {
				return err
			}

			printResult(map[string]string{"status": "destroyed"}, func() {
				fmt.Println("Destroyed project")
			})
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "skip the confirmation prompt")
	return cmd
}
