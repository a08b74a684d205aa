package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set via -ldflags "-X github.com/keylty/pgbranch/internal/cli.Version=..." at build time.
var Version = "0.1.0-dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the pgbranch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pgbranch version", Version)
		},
	}
}
