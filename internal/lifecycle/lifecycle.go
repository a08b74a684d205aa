// Package lifecycle is the sole mutator of the local State Store. It
// orchestrates every branch operation (create, delete, switch, start,
// stop, reset, destroy, cleanup) as a two-phase write against the State
// Store bracketing a call into the active Backend, serialized per
// project by an exclusive file lock and bounded by an overall operation
// deadline.
package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/lock"
	"github.com/keylty/pgbranch/internal/pgerrors"
	"github.com/keylty/pgbranch/internal/state"
)

// DefaultOperationTimeout bounds a single mutating operation when the
// config does not override it.
const DefaultOperationTimeout = 120 * time.Second

// Engine ties a project's State Store entry to the Backend that owns its
// branches.
type Engine struct {
	cfg        *config.Config
	project    domain.Project
	backend    backend.Backend
	statePath  string
	lockPath   string
	operationTimeout time.Duration
}

// New returns an Engine for project, persisting state to statePath (the
// default path from state.DefaultPath when empty) and locking via a
// sibling .lock file.
func New(cfg *config.Config, project domain.Project, be backend.Backend, statePath string) (*Engine, error) {
	if statePath == "" {
		p, err := state.DefaultPath()
		if err != nil {
			return nil, err
		}
		statePath = p
	}
	timeout := cfg.Behavior.OperationTimeout
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return &Engine{
		cfg:              cfg,
		project:          project,
		backend:          be,
		statePath:        statePath,
		lockPath:         statePath + ".lock",
		operationTimeout: timeout,
	}, nil
}

// withLock loads the state store, runs fn under an exclusive (or shared,
// for read-only callers) file lock, and saves the store back if fn
// returns mutated=true.
func (e *Engine) withLock(mode lock.Mode, fn func(*state.Store, *state.ProjectState) (bool, error)) error {
	fl := lock.New(e.lockPath)
	if err := fl.Lock(mode, "lifecycle"); err != nil {
		return pgerrors.IoError("acquire state lock", err)
	}
	defer fl.Unlock()

	store, err := state.Load(e.statePath)
	if err != nil {
		return err
	}
	proj := store.Project(e.project.Key())

	mutated, err := fn(store, proj)
	if err != nil {
		return err
	}
	if !mutated {
		return nil
	}
	return store.Save(e.statePath)
}

func (e *Engine) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.operationTimeout)
}

// withTwoPhaseLock holds a single exclusive lock across the full
// reserve/step/commit sequence, but - unlike withLock - saves the store
// twice: once right after reserve sets an in-flight marker, and once
// more after step's outcome is folded in by commit. The first save is
// what makes the marker real: if step (the backend call) crashes the
// process, the marker reserve wrote is already on disk for `doctor` to
// find, instead of living only in memory until a save that never
// happens.
func (e *Engine) withTwoPhaseLock(
	reserve func(*state.ProjectState) error,
	step func(*state.ProjectState) error,
	commit func(*state.ProjectState, error),
) error {
	fl := lock.New(e.lockPath)
	if err := fl.Lock(lock.Exclusive, "lifecycle"); err != nil {
		return pgerrors.IoError("acquire state lock", err)
	}
	defer fl.Unlock()

	store, err := state.Load(e.statePath)
	if err != nil {
		return err
	}
	proj := store.Project(e.project.Key())

	if err := reserve(proj); err != nil {
		return err
	}
	if err := store.Save(e.statePath); err != nil {
		return fmt.Errorf("persist reservation: %w", err)
	}

	stepErr := step(proj)
	commit(proj, stepErr)

	if err := store.Save(e.statePath); err != nil {
		if stepErr != nil {
			return stepErr
		}
		return fmt.Errorf("persist outcome: %w", err)
	}
	return stepErr
}

// Create materializes a new branch named name from parentName (the
// project root when parentName is empty) and records it in the State
// Store. The backend call is bracketed by a two-phase write: a Creating
// placeholder is saved to disk before the backend call so a crash
// mid-create leaves a marker `doctor` can reconcile, then finalized to
// Running or rolled back to absent on failure.
func (e *Engine) Create(ctx context.Context, name, parentName string) (*domain.Branch, error) {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	var parent *domain.Branch
	var dbName string
	var created *domain.Branch

	err := e.withTwoPhaseLock(
		func(proj *state.ProjectState) error {
			if _, exists := proj.Branches[name]; exists {
				return pgerrors.NameCollision(name)
			}
			if parentName != "" {
				p, ok := proj.Branches[parentName]
				if !ok {
					return pgerrors.ParentMissing(parentName)
				}
				parent = p
			}

			var err error
			dbName, err = domain.DeriveDatabaseName(e.cfg.Backend.NamingStrategy, e.cfg.Backend.DatabasePrefix, name)
			if err != nil {
				return pgerrors.InvalidBranchName(name, err.Error())
			}

			placeholder := &domain.Branch{Name: name, DatabaseName: dbName}
			if parent != nil {
				placeholder.Parent = parent.Name
			}
			proj.ReserveCreating(placeholder)
			return nil
		},
		func(proj *state.ProjectState) error {
			br, err := e.backend.Create(ctx, backend.CreateOptions{
				Project:      e.project,
				Name:         name,
				DatabaseName: dbName,
				Parent:       parent,
			})
			if err != nil {
				return err
			}
			br.CreatedAt = proj.Branches[name].CreatedAt
			proj.Branches[name] = br
			created = br
			return nil
		},
		func(proj *state.ProjectState, stepErr error) {
			if stepErr != nil {
				proj.Remove(name)
			}
		},
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Delete tears down a branch's backend resources and removes it from
// the State Store. name must not be the project root or the current
// branch. The Deleting marker is saved before the backend call for the
// same reason Create's placeholder is: a crash mid-delete must leave
// something for `doctor` to find instead of silently reverting to as
// if Delete had never been called.
func (e *Engine) Delete(ctx context.Context, name string) error {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	var target *domain.Branch
	return e.withTwoPhaseLock(
		func(proj *state.ProjectState) error {
			br, ok := proj.Branches[name]
			if !ok {
				return pgerrors.BranchNotFound(name)
			}
			if br.IsRoot() {
				return pgerrors.PolicyBlocked(fmt.Sprintf("branch %q is the project root and cannot be deleted", name))
			}
			if proj.CurrentBranch == name {
				return pgerrors.PolicyBlocked(fmt.Sprintf("branch %q is currently checked out", name))
			}
			if children := proj.Children(name); len(children) > 0 {
				return pgerrors.PolicyBlocked(fmt.Sprintf("branch %q has dependent branches: %v", name, children))
			}
			target = br
			proj.ReserveDeleting(name)
			return nil
		},
		func(proj *state.ProjectState) error {
			return e.backend.Delete(ctx, target)
		},
		func(proj *state.ProjectState, stepErr error) {
			if stepErr != nil {
				proj.Commit(name, domain.StatusErrored)
				return
			}
			proj.Remove(name)
		},
	)
}

// List returns every branch known for the project, sorted by name.
func (e *Engine) List(ctx context.Context) ([]*domain.Branch, error) {
	var out []*domain.Branch
	err := e.withLock(lock.Shared, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		for _, b := range proj.Branches {
			out = append(out, b)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// BranchExists reports whether name is already recorded in the State
// Store, used by the Event Dispatcher to decide whether a post-checkout
// hook should auto-create the branch it just saw.
func (e *Engine) BranchExists(name string) bool {
	var exists bool
	_ = e.withLock(lock.Shared, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		_, exists = proj.Branches[name]
		return false, nil
	})
	return exists
}

// Switch records name as the project's current branch. It does not
// touch the backend: switching is a bookkeeping operation that reflects
// `git checkout`, driven by the Event Dispatcher on post-checkout.
func (e *Engine) Switch(ctx context.Context, name string) error {
	return e.withLock(lock.Exclusive, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		if _, ok := proj.Branches[name]; !ok {
			return false, pgerrors.BranchNotFound(name)
		}
		proj.SetCurrent(name)
		return true, nil
	})
}

// Start, Stop, and Reset stay on the single-save withLock: none of them
// introduce an in-flight marker the way Create/Delete do (there is no
// "starting"/"stopping" status doctor reconciles), so there is nothing
// to persist before the backend call - a crash mid-call just leaves the
// branch at whatever status it already had, which is what the State
// Store said before the operation began either way.

// Start brings a stopped branch back up.
func (e *Engine) Start(ctx context.Context, name string) (*domain.Branch, error) {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	var result *domain.Branch
	err := e.withLock(lock.Exclusive, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		br, ok := proj.Branches[name]
		if !ok {
			return false, pgerrors.BranchNotFound(name)
		}
		updated, err := e.backend.Start(ctx, br)
		if err != nil {
			proj.Commit(name, domain.StatusErrored)
			return true, err
		}
		proj.Branches[name] = updated
		result = updated
		return true, nil
	})
	return result, err
}

// Stop takes a running branch down without destroying its data.
func (e *Engine) Stop(ctx context.Context, name string) (*domain.Branch, error) {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	var result *domain.Branch
	err := e.withLock(lock.Exclusive, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		br, ok := proj.Branches[name]
		if !ok {
			return false, pgerrors.BranchNotFound(name)
		}
		updated, err := e.backend.Stop(ctx, br)
		if err != nil {
			proj.Commit(name, domain.StatusErrored)
			return true, err
		}
		proj.Branches[name] = updated
		result = updated
		return true, nil
	})
	return result, err
}

// Reset discards a branch's data and re-clones it from its parent's
// current state.
func (e *Engine) Reset(ctx context.Context, name string) (*domain.Branch, error) {
	ctx, cancel := e.deadline(ctx)
	defer cancel()

	var result *domain.Branch
	err := e.withLock(lock.Exclusive, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		br, ok := proj.Branches[name]
		if !ok {
			return false, pgerrors.BranchNotFound(name)
		}
		if br.IsRoot() {
			return false, pgerrors.PolicyBlocked(fmt.Sprintf("branch %q is the project root and has no parent to reset from", name))
		}
		parent, ok := proj.Branches[br.Parent]
		if !ok {
			return false, pgerrors.ParentMissing(br.Parent)
		}

		updated, err := e.backend.Reset(ctx, br, parent)
		if err != nil {
			proj.Commit(name, domain.StatusErrored)
			return true, err
		}
		proj.Branches[name] = updated
		result = updated
		return true, nil
	})
	return result, err
}

// Destroy tears down every non-root branch and the root branch itself,
// used by `pgbranch destroy --all` to fully decommission a project.
func (e *Engine) Destroy(ctx context.Context) error {
	branches, err := e.List(ctx)
	if err != nil {
		return err
	}

	order := destroyOrder(branches)
	for _, name := range order {
		if err := e.Delete(ctx, name); err != nil {
			return err
		}
	}

	ctx, cancel := e.deadline(ctx)
	defer cancel()
	return e.withLock(lock.Exclusive, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		root := proj.Root()
		if root == nil {
			return false, nil
		}
		if err := e.backend.Delete(ctx, root); err != nil {
			return false, err
		}
		proj.Remove(root.Name)
		delete(store.Projects, e.project.Key())
		return true, nil
	})
}

// destroyOrder returns leaf-first names of every non-root branch, so
// Destroy never attempts to delete a branch with live children.
func destroyOrder(branches []*domain.Branch) []string {
	children := map[string]int{}
	byName := map[string]*domain.Branch{}
	for _, b := range branches {
		byName[b.Name] = b
		if b.Parent != "" {
			children[b.Parent]++
		}
	}

	var order []string
	remaining := map[string]*domain.Branch{}
	for _, b := range branches {
		if !b.IsRoot() {
			remaining[b.Name] = b
		}
	}
	for len(remaining) > 0 {
		progress := false
		for name, b := range remaining {
			if children[name] == 0 {
				order = append(order, name)
				delete(remaining, name)
				if b.Parent != "" {
					children[b.Parent]--
				}
				progress = true
			}
		}
		if !progress {
			// Cycle guard: shouldn't happen since Delete enforces a tree,
			// but avoid an infinite loop if state is ever corrupted.
			for name := range remaining {
				order = append(order, name)
			}
			break
		}
	}
	return order
}

// Cleanup deletes the oldest non-root, non-current, childless branches
// until at most keep of those remain, returning the names it deleted.
// Branches with children are never deleted and do not count toward keep. Ties in CreatedAt
// are broken by name for deterministic ordering.
func (e *Engine) Cleanup(ctx context.Context, keep int) ([]string, error) {
	branches, err := e.List(ctx)
	if err != nil {
		return nil, err
	}

	var current string
	err = e.withLock(lock.Shared, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		current = proj.CurrentBranch
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	var candidates []*domain.Branch
	for _, b := range branches {
		if !b.IsRoot() && b.Name != current && len(childrenOf(branches, b.Name)) == 0 {
			candidates = append(candidates, b)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].Name < candidates[j].Name
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	if len(candidates) <= keep {
		return nil, nil
	}
	toDelete := candidates[:len(candidates)-keep]

	var deleted []string
	for _, b := range toDelete {
		if err := e.Delete(ctx, b.Name); err != nil {
			return deleted, err
		}
		deleted = append(deleted, b.Name)
	}
	return deleted, nil
}

func childrenOf(branches []*domain.Branch, name string) []string {
	var out []string
	for _, b := range branches {
		if b.Parent == name {
			out = append(out, b.Name)
		}
	}
	return out
}

// Connection returns how to reach a branch's database.
func (e *Engine) Connection(ctx context.Context, name string) (domain.ConnectionInfo, error) {
	var br *domain.Branch
	err := e.withLock(lock.Shared, func(store *state.Store, proj *state.ProjectState) (bool, error) {
		b, ok := proj.Branches[name]
		if !ok {
			return false, pgerrors.BranchNotFound(name)
		}
		br = b
		return false, nil
	})
	if err != nil {
		return domain.ConnectionInfo{}, err
	}
	return e.backend.Connection(ctx, br)
}

// StatePath returns the path of the state file this Engine persists to,
// for `doctor` and `status` to inspect directly.
func (e *Engine) StatePath() string {
	return e.statePath
}

// DataDirFor returns the would-be Local backend data directory for a
// branch name. Nothing in the repository calls it; `doctor` does not
// check for orphaned data directories.
func DataDirFor(dataRoot, name string) string {
	return filepath.Join(dataRoot, name)
}
