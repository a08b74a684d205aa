package cli

import (
	"fmt"
	"os"

	"github.com/keylty/pgbranch/internal/pgerrors"
	"github.com/spf13/cobra"
)

var (
	jsonOut        bool
	nonInteractive bool
	dataDirFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "pgbranch",
	Short: "Branch your Postgres database the way you branch your Git repo",
	Long: `pgbranch gives every Git branch its own PostgreSQL database, cloned
cheaply from a template via copy-on-write storage or your provider's
native branching API.

Quick start:
  pgbranch init                  Configure pgbranch for this repo
  pgbranch create feature/login  Branch a database off the current branch
  pgbranch list                  Show every branch and its status
  pgbranch switch feature/login  Record it as the current branch
  pgbranch install-hooks         Auto-create/switch on every checkout`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt, fail instead")
	rootCmd.PersistentFlags().StringVarP(&dataDirFlag, "data-dir", "d", "", "override the local backend's data root")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newSwitchCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newDestroyCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newInstallHooksCmd())
	rootCmd.AddCommand(newUninstallHooksCmd())
	rootCmd.AddCommand(newSetupZFSCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newConnectionCmd())
	rootCmd.AddCommand(newHookCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func printError(err error) {
	if jsonOut {
		printJSON(pgerrors.JSONEnvelope(err))
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
}
