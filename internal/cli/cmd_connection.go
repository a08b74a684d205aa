package cli

import (
	"context"
	"fmt"

	"github.com/keylty/pgbranch/internal/domain"
	"github.com/spf13/cobra"
)

func newConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection <branch>",
		Short: "Print a branch's connection info",
		Long: `Print the connection info for a branch: host, port, database,
credentials. Defaults to a postgresql:// URI; --format env emits
DATABASE_* shell assignments; --format json emits structured fields
suitable for scripting.

Examples:
  pgbranch connection feature/login
  pgbranch connection feature/login --format env
  pgbranch connection feature/login --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			conn, err := a.lifecycle.Connection(context.Background(), args[0])
			if err != nil {
				return err
			}

			result := struct {
				domain.ConnectionInfo
				ConnectionString string `json:"connection_string"`
			}{conn, conn.ConnectionString()}
			if jsonOut {
				printJSON(map[string]any{"ok": true, "result": result})
				return nil
			}
			switch format {
			case "uri":
				fmt.Println(conn.URI())
			case "env":
				fmt.Println(conn.Env())
			case "json":
				printJSON(map[string]any{"ok": true, "result": result})
			default:
				return fmt.Errorf("unknown --format %q: want uri, env, or json", format)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "uri", "output format: uri, env, or json")
	return cmd
}
