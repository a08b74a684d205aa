// Package backend defines the pluggable database-branching backend
// contract. The factory that selects a concrete implementation from
// config lives in the backend/factory subpackage.
package backend

import (
	"context"

	"github.com/keylty/pgbranch/internal/domain"
)

// CreateOptions carries everything a backend needs to materialize a new
// branch from its parent.
type CreateOptions struct {
	Project      domain.Project
	Name         string
	DatabaseName string
	Parent       *domain.Branch // nil when creating the project root
}

// Backend is the contract every branching strategy implements: local
// Docker+CoW, server-side template databases, or a remote branching API.
type Backend interface {
	// Kind identifies this backend implementation.
	Kind() domain.BackendKind

	// Create materializes a new branch and returns it with Handle/Host/
	// Port/Status populated.
	Create(ctx context.Context, opts CreateOptions) (*domain.Branch, error)

	// Delete tears down a branch's backing resources.
	Delete(ctx context.Context, b *domain.Branch) error

	// List enumerates every branch the backend currently knows about for
	// a project, used by `doctor` to reconcile against the State Store.
	List(ctx context.Context, project domain.Project) ([]*domain.Branch, error)

	// Start brings a stopped branch back up.
	Start(ctx context.Context, b *domain.Branch) (*domain.Branch, error)

	// Stop takes a running branch down without destroying its data.
	Stop(ctx context.Context, b *domain.Branch) (*domain.Branch, error)

	// Reset discards a branch's data and re-clones it from its parent's
	// current state.
	Reset(ctx context.Context, b *domain.Branch, parent *domain.Branch) (*domain.Branch, error)

	// Connection returns how to reach a branch's database.
	Connection(ctx context.Context, b *domain.Branch) (domain.ConnectionInfo, error)

	// Health reports whether the backend itself (not a specific branch)
	// is reachable, used by `doctor`.
	Health(ctx context.Context) error
}
