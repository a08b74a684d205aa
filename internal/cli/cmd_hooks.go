package cli

import (
	"fmt"
	"os"

	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/spf13/cobra"
)

func newInstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-hooks",
		Short: "Install post-checkout/post-merge hooks that drive the Event Dispatcher",
		Long: `Append a pgbranch block to this repo's post-checkout and post-merge
hook scripts, preserving any hook content already there. Idempotent.

Example:
  pgbranch install-hooks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			repoRoot, err := gitadapter.FindRepoRoot(cwd)
			if err != nil {
				return err
			}

			binary, err := os.Executable()
			if err != nil {
				binary = "pgbranch"
			}

			if err := gitadapter.InstallHooks(repoRoot, binary); err != nil {
				return err
			}
			printResult(map[string]string{"status": "installed"}, func() {
				fmt.Println("Installed post-checkout and post-merge hooks")
			})
			return nil
		},
	}
}

func newUninstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall-hooks",
		Short: "Remove the pgbranch block from post-checkout/post-merge hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			repoRoot, err := gitadapter.FindRepoRoot(cwd)
			if err != nil {
				return err
			}

			if err := gitadapter.UninstallHooks(repoRoot); err != nil {
				return err
			}
			printResult(map[string]string{"status": "uninstalled"}, func() {
				fmt.Println("Removed pgbranch hooks")
			})
			return nil
		},
	}
}
