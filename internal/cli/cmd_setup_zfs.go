package cli

import (
	"fmt"
	"os"

	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/keylty/pgbranch/internal/storagedriver"
	"github.com/spf13/cobra"
)

func newSetupZFSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup-zfs",
		Short: "Probe and report which copy-on-write storage strategy pgbranch would use",
		Long: fmt.Sprintf(`Probe every copy-on-write strategy in preference order (APFS, ZFS,
reflink, full-copy fallback) and report which one Create would use for
the local backend. ZFS is used when %s names an existing dataset or
when a mounted ZFS dataset covers the data root; pgbranch does not
create ZFS pools itself.

Example:
  pgbranch setup-zfs`, storagedriver.ZFSDatasetEnvVar),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			repoRoot, err := gitadapter.FindRepoRoot(cwd)
			if err != nil {
				return err
			}

			detections := storagedriver.New(repoRoot).Doctor()
			printResult(detections, func() {
				for _, d := range detections {
					status := "unavailable"
					if d.Available {
						status = "available"
					}
					fmt.Printf("%-10s %-12s %s\n", d.Strategy, status, d.Detail)
				}
			})
			return nil
		},
	}
}
