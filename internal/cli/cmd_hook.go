package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/keylty/pgbranch/internal/dispatch"
	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/keylty/pgbranch/internal/rotatelog"
	"github.com/spf13/cobra"
)

// maxHookLogBytes bounds the per-project hook log before it rotates.
const maxHookLogBytes = 5 * 1024 * 1024

// newHookCmd is invoked by the scripts install-hooks writes into
// .git/hooks/post-checkout and .git/hooks/post-merge, never directly
// by a user. It must never make Git's own command fail.
func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook <post-checkout|post-merge> [old-ref] [new-ref] [flag]",
		Short:  "Run the Event Dispatcher for a Git hook invocation (internal)",
		Hidden: true,
		Args:   cobra.RangeArgs(1, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runHook(args))
			return nil
		},
	}
	return cmd
}

// runHook returns the process exit code directly rather than an error,
// since a non-zero exit from a Git hook aborts the checkout/merge it's
// attached to — the Dispatcher already encodes strict_hooks into the
// code it returns.
func runHook(args []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgbranch hook: get working directory:", err)
		return 0
	}
	repoRoot, err := gitadapter.FindRepoRoot(cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgbranch hook: not in a git repository:", err)
		return 0
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgbranch hook: skipping, project not initialized:", err)
		return 0
	}

	ev := parseHookEvent(a, args)

	logPath := filepath.Join(repoRoot, ".git", "pgbranch", "hook.log")
	var logWriter io.Writer
	if rw, openErr := rotatelog.Open(logPath, maxHookLogBytes); openErr != nil {
		fmt.Fprintln(os.Stderr, "pgbranch hook: open log:", openErr)
	} else {
		defer rw.Close()
		logWriter = rw
	}

	d := dispatch.New(a.cfg, a.git, a.lifecycle, logWriter)
	return d.Dispatch(context.Background(), ev)
}

// parseHookEvent maps positional hook arguments onto a dispatch.Event.
// post-checkout calls hooks with (old-ref, new-ref, branch-flag) where
// branch-flag is "1" for a branch checkout and "0" for a file checkout;
// post-merge calls with just (squash-flag), so it is always treated as
// a branch change. For both hooks the branch name is read from the
// current repo state.
func parseHookEvent(a *app, args []string) dispatch.Event {
	hookName := args[0]
	ev := dispatch.Event{IsBranchChange: true}

	switch hookName {
	case "post-checkout":
		if len(args) >= 3 {
			ev.OldRef = args[1]
			ev.NewRef = args[2]
		}
		if len(args) >= 4 {
			ev.IsBranchChange = args[3] == "1"
		}
	case "post-merge":
		ev.IsBranchChange = true
	}

	if branch, err := a.git.CurrentBranch(); err == nil {
		ev.BranchName = branch
	}
	return ev
}
