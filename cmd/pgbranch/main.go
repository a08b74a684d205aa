// Package main provides the entry point for the pgbranch CLI.
package main

import (
	"github.com/keylty/pgbranch/internal/cli"
)

func main() {
	cli.Execute()
}
