package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/keylty/pgbranch/internal/pgerrors"
	"github.com/mattn/go-isatty"
)

// printJSON writes v to stdout as indented JSON, the shape every command
// emits under --json.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// printResult prints v as JSON when --json is set, otherwise delegates
// to render for the human-readable form.
func printResult(v any, render func()) {
	if jsonOut {
		printJSON(map[string]any{"ok": true, "result": v})
		return
	}
	render()
}

func exitCodeFor(err error) int {
	var branchErr *pgerrors.BranchError
	if pgerrors.As(err, &branchErr) {
		return branchErr.ExitCode()
	}
	return 1
}

// confirm prompts the user for a y/N answer, refusing outright when
// --non-interactive was passed or when stdin isn't a terminal (e.g. a
// CI job or a piped script) — there's nobody there to answer.
func confirm(prompt string) bool {
	if nonInteractive || !isatty.IsTerminal(os.Stdin.Fd()) {
		return false
	}
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	_, _ = fmt.Scanln(&answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
