// Package diagnostics implements doctor, status, and config-show: the
// read paths that cross-check the State Store against what every
// Backend actually reports, and that explain where each configuration
// value came from.
package diagnostics

import (
	"context"
	"fmt"
	"sort"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/state"
	"golang.org/x/sync/errgroup"
)

// Severity classifies one Finding for CLI rendering.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one reconciliation result surfaced by Doctor.
type Finding struct {
	Branch   string   `json:"branch"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Fixed    bool     `json:"fixed"`
}

// Report is the full output of a Doctor run.
type Report struct {
	Findings []Finding `json:"findings"`
	Healthy  bool      `json:"healthy"`
	// New holds the subset of Findings not present in the previous run
	// recorded in the Doctor's ReconciliationCache. It is only
	// populated when a cache is attached via WithCache.
	New []Finding `json:"new,omitempty"`
}

// Doctor cross-checks a project's State Store against its backend:
// branches stuck mid two-phase-write (Pending), and branches the State
// Store lists that the backend no longer reports. It never mutates
// anything unless fix is true, in which case orphaned pending markers
// are removed from the State Store.
type Doctor struct {
	statePath string
	project   domain.Project
	backend   backend.Backend
	cache     *ReconciliationCache
}

// New returns a Doctor for one project.
func New(statePath string, project domain.Project, be backend.Backend) *Doctor {
	return &Doctor{statePath: statePath, project: project, backend: be}
}

// WithCache attaches a ReconciliationCache so Run can report which
// findings are new since the previous pass and record this pass for
// the next one. Returns d for chaining.
func (d *Doctor) WithCache(cache *ReconciliationCache) *Doctor {
	d.cache = cache
	return d
}

// Run performs one reconciliation pass.
func (d *Doctor) Run(ctx context.Context, fix bool) (*Report, error) {
	store, err := state.Load(d.statePath)
	if err != nil {
		return nil, fmt.Errorf("load state store: %w", err)
	}
	proj := store.Project(d.project.Key())

	report := &Report{Healthy: true}

	for _, b := range proj.Pending() {
		f := Finding{
			Branch:   b.Name,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("branch %q is stuck in %s status, left by an interrupted operation", b.Name, b.Status),
		}
		if fix {
			proj.Remove(b.Name)
			f.Fixed = true
			f.Message += " (removed)"
		}
		report.Findings = append(report.Findings, f)
		report.Healthy = false
	}

	// Health and List are independent backend calls - probing both at
	// once instead of one after the other keeps a slow remote backend
	// (Neon, dblab, Xata) from doubling doctor's latency.
	var healthErr, listErr error
	var live []*domain.Branch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		healthErr = d.backend.Health(gctx)
		return nil
	})
	g.Go(func() error {
		live, listErr = d.backend.List(gctx, d.project)
		return nil
	})
	_ = g.Wait()

	if healthErr != nil {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityError,
			Message:  fmt.Sprintf("backend health check failed: %v", healthErr),
		})
		report.Healthy = false
	} else if listErr == nil {
		orphans := d.checkOrphans(proj, live)
		if len(orphans) > 0 {
			report.Healthy = false
		}
		report.Findings = append(report.Findings, orphans...)
	}

	sort.Slice(report.Findings, func(i, j int) bool { return report.Findings[i].Branch < report.Findings[j].Branch })

	if d.cache != nil {
		if prev, err := d.cache.Last(ctx, d.project.Key()); err == nil {
			report.New = newFindings(report.Findings, prev)
		}
		_ = d.cache.Record(ctx, d.project.Key(), report)
	}

	if fix && len(report.Findings) > 0 {
		if err := store.Save(d.statePath); err != nil {
			return report, fmt.Errorf("save reconciled state: %w", err)
		}
	}
	return report, nil
}

// checkOrphans flags branches the State Store believes are live but
// that the backend no longer reports — e.g. a container removed by
// `docker rm` outside of pgbranch.
func (d *Doctor) checkOrphans(proj *state.ProjectState, live []*domain.Branch) []Finding {
	if live == nil {
		// Some backends (local) have no independent source of truth and
		// return a nil list; nothing to cross-check against.
		return nil
	}
	liveHandles := make(map[string]bool, len(live))
	for _, b := range live {
		liveHandles[b.Handle] = true
	}

	var findings []Finding
	for _, b := range proj.Branches {
		if b.Status != domain.StatusRunning && b.Status != domain.StatusStopped {
			continue
		}
		if b.Handle != "" && !liveHandles[b.Handle] {
			findings = append(findings, Finding{
				Branch:   b.Name,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("branch %q has no matching backend resource (handle %q)", b.Name, b.Handle),
			})
		}
	}
	return findings
}

// Status is the snapshot `pgbranch status` renders: current branch,
// every branch's recorded state, and whether the backend is reachable.
type Status struct {
	CurrentBranch string           `json:"current_branch"`
	Branches      []*domain.Branch `json:"branches"`
	BackendHealth string           `json:"backend_health"`
}

// CollectStatus reads the State Store without reconciling anything.
func CollectStatus(ctx context.Context, statePath string, project domain.Project, be backend.Backend) (*Status, error) {
	store, err := state.Load(statePath)
	if err != nil {
		return nil, fmt.Errorf("load state store: %w", err)
	}
	proj := store.Project(project.Key())

	branches := make([]*domain.Branch, 0, len(proj.Branches))
	for _, b := range proj.Branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })

	health := "ok"
	if err := be.Health(ctx); err != nil {
		health = err.Error()
	}

	return &Status{
		CurrentBranch: proj.CurrentBranch,
		Branches:      branches,
		BackendHealth: health,
	}, nil
}

// ConfigShow renders the resolution chain for each of the given keys
// against loader's layers, the data behind `config-show -v`.
func ConfigShow(loader *config.Loader, keys []string) ([]*config.ResolutionChain, error) {
	chains := make([]*config.ResolutionChain, 0, len(keys))
	for _, key := range keys {
		chain, err := loader.GetResolutionChain(key)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", key, err)
		}
		chains = append(chains, chain)
	}
	return chains, nil
}
