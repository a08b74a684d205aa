package cli

import (
	"fmt"
	"os"

	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/diagnostics"
	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [key]",
		Short: "Show the effective config, or one key's resolution chain with -v",
		Long: `Show the effective configuration, merged from defaults, the
committed config, the local override, and environment variables. With
a key and -v, show every layer's value for that key and which one won.

Examples:
  pgbranch config
  pgbranch config backend.kind -v`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("v")

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			repoRoot, err := gitadapter.FindRepoRoot(cwd)
			if err != nil {
				return err
			}

			loader := config.NewLoader(repoRoot)

			if verbose {
				keys := args
				if len(keys) == 0 {
					keys = config.AllConfigPaths()
				}
				chains, err := diagnostics.ConfigShow(loader, keys)
				if err != nil {
					return err
				}
				printResult(chains, func() {
					for _, chain := range chains {
						fmt.Printf("%s = %s (from %s)\n", chain.Key, chain.FinalValue, chain.WinningFrom)
						for _, entry := range chain.Entries {
							marker := " "
							if entry.IsWinning {
								marker = "*"
							}
							fmt.Printf("  %s %-10s %-10s %s\n", marker, entry.Level, entry.Source, entry.Value)
						}
					}
				})
				return nil
			}

			tc, err := loader.Load()
			if err != nil {
				return err
			}
			printResult(tc.Config, func() {
				for _, key := range config.AllConfigPaths() {
					val, err := tc.Config.GetValue(key)
					if err == nil {
						fmt.Printf("%s = %s\n", key, val)
					}
				}
			})
			return nil
		},
	}
	cmd.Flags().Bool("v", false, "show the full resolution chain for each key")
	return cmd
}
