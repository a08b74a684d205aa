// Package local implements the Backend interface over a local Docker
// container plus a Copy-on-Write storage strategy: clone the parent's
// data directory, start a container on it, and wait for readiness.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/container"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/pgerrors"
	"github.com/keylty/pgbranch/internal/storagedriver"
)

// Backend is the local Docker+CoW implementation of backend.Backend.
type Backend struct {
	cfg        config.LocalBackendConfig
	portStart  int
	strategy   storagedriver.Strategy
	storage    *storagedriver.Driver
	containers *container.Driver
	readiness  container.ReadinessConfig
}

// New returns a local Backend using the given storage strategy and data
// root. storage and containers default to their real implementations
// when nil, so tests can inject fakes.
func New(cfg config.LocalBackendConfig, portStart int, strategy storagedriver.Strategy, storage *storagedriver.Driver, containers *container.Driver) *Backend {
	if storage == nil {
		storage = storagedriver.New(cfg.DataRoot)
	}
	if containers == nil {
		containers = container.New()
	}
	return &Backend{cfg: cfg, portStart: portStart, strategy: strategy, storage: storage, containers: containers, readiness: container.DefaultReadinessConfig()}
}

// SetReadinessConfig overrides the readiness-polling backoff, for tests that
// need a fast deadline against a fake container runner.
func (b *Backend) SetReadinessConfig(cfg container.ReadinessConfig) {
	b.readiness = cfg
}

func (b *Backend) Kind() domain.BackendKind { return domain.BackendLocal }

func (b *Backend) dataDir(name string) string {
	return filepath.Join(b.cfg.DataRoot, name)
}

func containerName(databaseName string) string {
	return "pgbranch_" + databaseName
}

// Create clones the parent's data directory (or initializes an empty
// one for the project root), starts a container over it, and waits for
// PostgreSQL to accept connections.
func (b *Backend) Create(ctx context.Context, opts backend.CreateOptions) (*domain.Branch, error) {
	dataDir := b.dataDir(opts.Name)

	if opts.Parent == nil {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, pgerrors.IoError("create data directory", err)
		}
	} else {
		parentDir := b.dataDir(opts.Parent.Name)
		if opts.Parent.Status == domain.StatusRunning && opts.Parent.Handle != "" {
			if err := b.containers.Pause(opts.Parent.Handle); err != nil {
				return nil, pgerrors.SourceBusy(parentDir).WithCause(err)
			}
			defer b.containers.Unpause(opts.Parent.Handle)
		}
		if err := b.storage.Clone(b.strategy, parentDir, dataDir); err != nil {
			return nil, err
		}
	}

	port, err := container.PickPort(b.portStart)
	if err != nil {
		return nil, pgerrors.ContainerFailed(opts.Name, err.Error())
	}

	name := containerName(opts.DatabaseName)
	id, err := b.containers.Run(container.RunSpec{
		Name:     name,
		Image:    b.cfg.Image,
		DataDir:  dataDir,
		Port:     port,
		Database: opts.DatabaseName,
		User:     b.cfg.DatabaseUser,
		Env: map[string]string{
			"POSTGRES_USER":     b.cfg.DatabaseUser,
			"POSTGRES_PASSWORD": b.cfg.DatabasePassword,
			"POSTGRES_DB":       opts.DatabaseName,
		},
	})
	if err != nil {
		return nil, err
	}

	branch := &domain.Branch{
		Project:      opts.Project.Key(),
		Name:         opts.Name,
		DatabaseName: opts.DatabaseName,
		Root:         opts.Parent == nil,
		Handle:       id,
		Host:         "127.0.0.1",
		Port:         port,
		Status:       domain.StatusCreating,
	}
	if opts.Parent != nil {
		branch.Parent = opts.Parent.Name
	}

	if err := b.containers.WaitReady(ctx, id, branch.Host, port, b.cfg.DatabaseUser, opts.DatabaseName, b.readiness); err != nil {
		branch.Status = domain.StatusErrored
		return branch, err
	}

	branch.Status = domain.StatusRunning
	return branch, nil
}

// Delete stops and removes the container, then destroys its data
// directory.
func (b *Backend) Delete(ctx context.Context, br *domain.Branch) error {
	if br.Handle != "" {
		if err := b.containers.Remove(br.Handle); err != nil {
			return err
		}
	}
	return b.storage.Destroy(b.strategy, b.dataDir(br.Name))
}

// List always returns a nil list and inspects no containers. The local
// backend has no independent source of branch metadata beyond what the
// State Store already holds, so `doctor` has nothing to reconcile
// against for it.
func (b *Backend) List(ctx context.Context, project domain.Project) ([]*domain.Branch, error) {
	return nil, nil
}

// Start restarts a stopped branch's container.
func (b *Backend) Start(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	if err := b.containers.Start(br.Handle); err != nil {
		return br, err
	}
	if err := b.containers.WaitReady(ctx, br.Handle, br.Host, br.Port, b.cfg.DatabaseUser, br.DatabaseName, b.readiness); err != nil {
		br.Status = domain.StatusErrored
		return br, err
	}
	br.Status = domain.StatusRunning
	return br, nil
}

// Stop stops a branch's container without destroying its data.
func (b *Backend) Stop(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	if err := b.containers.Stop(br.Handle); err != nil {
		return br, err
	}
	br.Status = domain.StatusStopped
	return br, nil
}

// Reset destroys the branch's data and re-clones it from the parent's
// current state, yielding data byte-identical to a fresh Create at that
// parent state.
func (b *Backend) Reset(ctx context.Context, br *domain.Branch, parent *domain.Branch) (*domain.Branch, error) {
	if parent == nil {
		return br, fmt.Errorf("reset requires a parent branch, %q is the project root", br.Name)
	}
	if br.Handle != "" {
		if err := b.containers.Remove(br.Handle); err != nil {
			return br, err
		}
	}

	dataDir := b.dataDir(br.Name)
	parentDir := b.dataDir(parent.Name)
	if err := b.storage.Reset(b.strategy, parentDir, dataDir); err != nil {
		return br, err
	}

	id, err := b.containers.Run(container.RunSpec{
		Name:     containerName(br.DatabaseName),
		Image:    b.cfg.Image,
		DataDir:  dataDir,
		Port:     br.Port,
		Database: br.DatabaseName,
		User:     b.cfg.DatabaseUser,
		Env: map[string]string{
			"POSTGRES_USER":     b.cfg.DatabaseUser,
			"POSTGRES_PASSWORD": b.cfg.DatabasePassword,
			"POSTGRES_DB":       br.DatabaseName,
		},
	})
	if err != nil {
		return br, err
	}
	br.Handle = id

	if err := b.containers.WaitReady(ctx, id, br.Host, br.Port, b.cfg.DatabaseUser, br.DatabaseName, b.readiness); err != nil {
		br.Status = domain.StatusErrored
		return br, err
	}
	br.Status = domain.StatusRunning
	return br, nil
}

// Connection returns the branch's local connection info.
func (b *Backend) Connection(ctx context.Context, br *domain.Branch) (domain.ConnectionInfo, error) {
	return domain.ConnectionInfo{
		Host:     br.Host,
		Port:     br.Port,
		Database: br.DatabaseName,
		User:     b.cfg.DatabaseUser,
		Password: b.cfg.DatabasePassword,
	}, nil
}

// Health checks that the data root exists or can be created. It does
// not probe Docker or test that the directory is writable.
func (b *Backend) Health(ctx context.Context) error {
	if err := os.MkdirAll(b.cfg.DataRoot, 0o755); err != nil {
		return pgerrors.BackendUnavailable(string(domain.BackendLocal), err.Error())
	}
	return nil
}
