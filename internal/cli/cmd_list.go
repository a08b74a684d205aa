package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every database branch",
		Long: `List every database branch tracked for this project, with status and
parent.

Example:
  pgbranch list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			branches, err := a.lifecycle.List(context.Background())
			if err != nil {
				return err
			}

			printResult(branches, func() {
				if len(branches) == 0 {
					fmt.Println("No branches found. Create one with: pgbranch create <branch>")
					return
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSTATUS\tPARENT\tDATABASE")
				for _, b := range branches {
					parent := b.Parent
					if parent == "" {
						parent = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Name, b.Status, parent, b.DatabaseName)
				}
				w.Flush()
			})
			return nil
		},
	}
}
