package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <branch>",
		Short: "Reset a branch's database back to its parent's current state",
		Long: `Reset discards every change made since the branch was created (or
last reset) by re-cloning from its parent. Blocked for the root
branch, which has no parent to reset from.

Example:
  pgbranch reset feature/login`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			name := args[0]
			force, _ := cmd.Flags().GetBool("force")
			if !force && !jsonOut && !confirm(fmt.Sprintf("Reset branch %q, discarding all local changes?", name)) {
				return fmt.Errorf("aborted")
			}

			br, err := a.lifecycle.Reset(context.Background(), name)
			if err != nil {
				return err
			}

			printResult(br, func() { fmt.Printf("Reset branch %q (status %s)\n", br.Name, br.Status) })
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "skip the confirmation prompt")
	return cmd
}
