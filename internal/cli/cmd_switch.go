package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <branch>",
		Short: "Record branch as the current branch",
		Long: `Record branch as the project's current branch in the local State
Store. Purely bookkeeping — it does not start or stop anything; the
Event Dispatcher calls this automatically on checkout when
auto_switch_on_branch is enabled.

Example:
  pgbranch switch feature/login`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			name := args[0]
			if err := a.lifecycle.Switch(context.Background(), name); err != nil {
				return err
			}

			printResult(map[string]string{"current": name}, func() {
				fmt.Printf("Switched to branch %q\n", name)
			})
			return nil
		},
	}
}
