// Package dispatch turns Git hook invocations into Lifecycle Engine
// calls: it loads the effective config, evaluates the process-wide
// kill-switches, and — if none fire — auto-creates and/or auto-switches
// the branch the hook reported.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/gitadapter"
)

// Event describes one Git hook invocation, matching post-checkout's and
// post-merge's positional arguments.
type Event struct {
	OldRef         string
	NewRef         string
	BranchName     string
	IsBranchChange bool
}

// LifecycleOps is the subset of lifecycle.Engine the dispatcher drives,
// kept as an interface so hook tests don't need a real State Store.
type LifecycleOps interface {
	Create(ctx context.Context, name, parentName string) (*domain.Branch, error)
	Switch(ctx context.Context, name string) error
	BranchExists(name string) bool
}

// Dispatcher runs the Event Dispatcher pipeline for one project.
type Dispatcher struct {
	cfg       *config.Config
	git       *gitadapter.Adapter
	lifecycle LifecycleOps
	logger    *slog.Logger
}

// New returns a Dispatcher. logWriter receives structured log lines for
// this invocation (a rotating per-project file in production, stderr or
// io.Discard in tests); it may be nil to log only to stderr.
func New(cfg *config.Config, git *gitadapter.Adapter, lifecycle LifecycleOps, logWriter io.Writer) *Dispatcher {
	writers := []io.Writer{os.Stderr}
	if logWriter != nil {
		writers = append(writers, logWriter)
	}
	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), nil))
	return &Dispatcher{cfg: cfg, git: git, lifecycle: lifecycle, logger: logger}
}

// Dispatch runs the pipeline for ev and returns the process exit code a
// hook script should use: always 0 unless behavior.strict_hooks is set
// and an error occurred.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) int {
	if !ev.IsBranchChange || ev.BranchName == "" {
		return 0
	}

	if reason := d.killSwitchReason(ev.BranchName); reason != "" {
		d.logger.Info("dispatch skipped by kill-switch", "branch", ev.BranchName, "reason", reason)
		return 0
	}

	if err := d.run(ctx, ev); err != nil {
		d.logger.Error("dispatch failed", "branch", ev.BranchName, "error", err.Error())
		if d.cfg.Behavior.StrictHooks {
			return 1
		}
	}
	return 0
}

func (d *Dispatcher) run(ctx context.Context, ev Event) error {
	if d.cfg.Git.AutoCreateOnBranch && !d.lifecycle.BranchExists(ev.BranchName) {
		parent, err := d.git.MainBranch(d.cfg.Git.MainBranch)
		if err != nil {
			return fmt.Errorf("resolve main branch: %w", err)
		}
		if _, err := d.lifecycle.Create(ctx, ev.BranchName, parent); err != nil {
			return fmt.Errorf("auto-create %q: %w", ev.BranchName, err)
		}
		d.logger.Info("auto-created branch", "branch", ev.BranchName, "parent", parent)
	}

	if d.cfg.Git.AutoSwitchOnBranch {
		if err := d.lifecycle.Switch(ctx, ev.BranchName); err != nil {
			return fmt.Errorf("auto-switch %q: %w", ev.BranchName, err)
		}
		d.logger.Info("auto-switched branch", "branch", ev.BranchName)
	}
	return nil
}

// killSwitchReason evaluates every kill-switch: the ones
// config.KillSwitchReasons covers, plus two checked here instead. The
// current-branch switch is a raw PGBRANCH_CURRENT_BRANCH_DISABLED env
// read with no config-layer key, and auto_create_branch_filter needs
// gitadapter.MatchRegex, which internal/config does not import.
func (d *Dispatcher) killSwitchReason(branch string) string {
	if reason := d.cfg.KillSwitchReasons(branch, gitadapter.MatchGlob); reason != "" {
		return reason
	}
	if os.Getenv("PGBRANCH_CURRENT_BRANCH_DISABLED") == "true" {
		return "PGBRANCH_CURRENT_BRANCH_DISABLED is set"
	}
	if filter := d.cfg.Git.AutoCreateBranchFilter; filter != "" && !gitadapter.MatchRegex(filter, branch) {
		return "current branch does not match auto_create_branch_filter"
	}
	return ""
}
