package cli

import (
	"fmt"
	"os"

	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a committed pgbranch config for this repository",
		Long: `Initialize pgbranch in the current repository.

Writes .pgbranch.yml at the repository root with the local backend as
the default. Edit it afterward to point at postgres_template, neon,
dblab, or xata instead.

Examples:
  pgbranch init
  pgbranch init --backend postgres_template
  pgbranch init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			backendKind, _ := cmd.Flags().GetString("backend")

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			repoRoot, err := gitadapter.FindRepoRoot(cwd)
			if err != nil {
				return err
			}

			cfg := config.Default()
			if backendKind != "" {
				cfg.Backend.Kind = domain.BackendKind(backendKind)
			}

			if err := config.Init(repoRoot, force, cfg); err != nil {
				return err
			}

			result := map[string]string{"repo_root": repoRoot, "backend": string(cfg.Backend.Kind)}
			printResult(result, func() {
				fmt.Printf("Initialized pgbranch in %s (backend: %s)\n", repoRoot, cfg.Backend.Kind)
				fmt.Println("Edit .pgbranch.yml to customize, then run: pgbranch create <branch>")
			})
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "overwrite an existing .pgbranch.yml")
	cmd.Flags().String("backend", "", "backend kind (local, postgres_template, neon, dblab, xata)")
	return cmd
}
