package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the oldest branches beyond a keep count",
		Long: `Cleanup keeps the N most recently created non-root, non-current,
childless branches and deletes the rest. Defaults to
behavior.cleanup_max_count if --keep is not given.

Example:
  pgbranch cleanup --keep 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			keep, _ := cmd.Flags().GetInt("keep")
			if keep == 0 {
				keep = a.cfg.Behavior.CleanupMaxCount
			}

			deleted, err := a.lifecycle.Cleanup(context.Background(), keep)
			if err != nil {
				return err
			}

			printResult(deleted, func() {
				if len(deleted) == 0 {
					fmt.Println("Nothing to clean up")
					return
				}
				fmt.Printf("Deleted %d branch(es): %v\n", len(deleted), deleted)
			})
			return nil
		},
	}
	cmd.Flags().Int("keep", 0, "number of most recent branches to keep (default behavior.cleanup_max_count)")
	return cmd
}
