package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <branch>",
		Aliases: []string{"rm"},
		Short:   "Delete a database branch",
		Long: `Delete a database branch. Blocked for the root branch and for any
branch that still has children — delete those first.

Example:
  pgbranch delete feature/login`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			name := args[0]
			force, _ := cmd.Flags().GetBool("force")
			if !force && !jsonOut && !confirm(fmt.Sprintf("Delete branch %q and its database?", name)) {
				return fmt.Errorf("aborted")
			}

			if err := a.lifecycle.Delete(context.Background(), name); err != nil {
				return err
			}

			printResult(map[string]string{"deleted": name}, func() {
				fmt.Printf("Deleted branch %q\n", name)
			})
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "skip the confirmation prompt")
	return cmd
}
