// Package gitadapter reads repository state (HEAD, main branch) and
// manages the post-checkout/post-merge hook stubs that drive pgbranch's
// event pipeline.
package gitadapter

import (
	"fmt"
	"strings"
)

// candidateMainBranches is the probe order used when no main_branch is
// configured.
var candidateMainBranches = []string{"main", "master", "develop"}

// Adapter wraps git operations needed by the Event Dispatcher and CLI.
type Adapter struct {
	repoRoot string
	runner   CommandRunner
}

// New returns an Adapter rooted at repoRoot using the default ExecRunner.
func New(repoRoot string) *Adapter {
	return &Adapter{repoRoot: repoRoot, runner: NewExecRunner()}
}

// NewWithRunner returns an Adapter using a custom CommandRunner, for tests.
func NewWithRunner(repoRoot string, runner CommandRunner) *Adapter {
	return &Adapter{repoRoot: repoRoot, runner: runner}
}

// RepoRoot returns the repository root this Adapter operates on.
func (a *Adapter) RepoRoot() string {
	return a.repoRoot
}

// FindRepoRoot returns the repository root containing dir, as reported
// by `git rev-parse --show-toplevel` run in dir.
func FindRepoRoot(dir string) (string, error) {
	runner := NewExecRunner()
	out, err := runner.Run(dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository (or any of the parent directories): %s", dir)
	}
	return out, nil
}

// CurrentBranch returns the name of the currently checked-out branch. It
// returns an empty string (not an error) for a detached HEAD.
func (a *Adapter) CurrentBranch() (string, error) {
	out, err := a.runner.Run(a.repoRoot, "git", "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", nil
	}
	return out, nil
}

// MainBranch returns configured, if non-empty, otherwise probes the
// conventional main/master/develop branch names in order and returns the
// first that exists as a local or remote branch.
func (a *Adapter) MainBranch(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, candidate := range candidateMainBranches {
		if a.BranchExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not auto-detect main branch: none of %s exist", strings.Join(candidateMainBranches, ", "))
}

// BranchExists reports whether name exists as a local or remote branch.
func (a *Adapter) BranchExists(name string) bool {
	if _, err := a.runner.Run(a.repoRoot, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+name); err == nil {
		return true
	}
	_, err := a.runner.Run(a.repoRoot, "git", "show-ref", "--verify", "--quiet", "refs/remotes/origin/"+name)
	return err == nil
}

// HeadCommit returns the full SHA of HEAD.
func (a *Adapter) HeadCommit() (string, error) {
	return a.runner.Run(a.repoRoot, "git", "rev-parse", "HEAD")
}

// IsClean reports whether the working tree has no uncommitted changes.
func (a *Adapter) IsClean() (bool, error) {
	out, err := a.runner.Run(a.repoRoot, "git", "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}
