package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <branch> [parent]",
		Short: "Create a database branch",
		Long: `Create a database branch named after a Git branch, cloned from parent
(or the current branch if parent is omitted and one exists, otherwise
the project root).

Examples:
  pgbranch create feature/login
  pgbranch create feature/login main`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			name := args[0]
			parent := ""
			if len(args) == 2 {
				parent = args[1]
			} else if current, err := a.git.CurrentBranch(); err == nil && current != name {
				parent = current
			}

			br, err := a.lifecycle.Create(context.Background(), name, parent)
			if err != nil {
				return err
			}

			printResult(br, func() {
				fmt.Printf("Created branch %q (database %s, status %s)\n", br.Name, br.DatabaseName, br.Status)
			})
			return nil
		},
	}
	return cmd
}
