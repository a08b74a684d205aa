// Package cli implements the pgbranch command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/backend/factory"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/diagnostics"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/keylty/pgbranch/internal/lifecycle"
	"github.com/keylty/pgbranch/internal/storagedriver"
)

// app bundles the objects every branch-lifecycle command needs, built
// fresh for each invocation from the current working directory.
type app struct {
	cfg       *config.Config
	git       *gitadapter.Adapter
	project   domain.Project
	backend   backend.Backend
	lifecycle *lifecycle.Engine
}

// newApp resolves the repository root, loads the effective config, and
// wires a Backend and Lifecycle Engine for it. Commands that only read
// diagnostics (doctor, status, config) also go through this so they see
// the same project/backend resolution as the mutating commands.
func newApp() (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	repoRoot, err := gitadapter.FindRepoRoot(cwd)
	if err != nil {
		return nil, err
	}

	if err := config.RequireInit(repoRoot); err != nil {
		return nil, err
	}

	tc, err := config.NewLoader(repoRoot).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := tc.Config

	git := gitadapter.New(repoRoot)
	project := domain.Project{RepoRoot: repoRoot}

	dataRoot := cfg.Backend.Local.DataRoot
	if dataRoot == "" {
		dataRoot = repoRoot
	}
	if dataDirFlag != "" {
		dataRoot = dataDirFlag
		cfg.Backend.Local.DataRoot = dataDirFlag
	}
	strategy := storagedriver.New(dataRoot).Detect().Strategy

	portStart := cfg.Behavior.PortRangeStart
	if portStart == 0 {
		portStart = 15432
	}

	be, err := factory.New(cfg, strategy, portStart)
	if err != nil {
		return nil, fmt.Errorf("build backend: %w", err)
	}

	engine, err := lifecycle.New(cfg, project, be, "")
	if err != nil {
		return nil, fmt.Errorf("build lifecycle engine: %w", err)
	}

	return &app{cfg: cfg, git: git, project: project, backend: be, lifecycle: engine}, nil
}

// doctor builds a Doctor for the current project, attaching a local
// reconciliation cache when it can be opened so repeated `doctor`
// runs can report which findings are new. A cache that fails to open
// (e.g. a read-only filesystem) is not fatal - doctor still works, it
// just can't distinguish new findings from repeat ones.
func (a *app) doctor() *diagnostics.Doctor {
	d := diagnostics.New(a.lifecycle.StatePath(), a.project, a.backend)
	cachePath := a.lifecycle.StatePath() + ".doctor-cache.sqlite3"
	if cache, err := diagnostics.OpenReconciliationCache(cachePath); err == nil {
		d = d.WithCache(cache)
	}
	return d
}
