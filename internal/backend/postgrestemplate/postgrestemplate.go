// Package postgrestemplate implements the Backend interface against a
// single shared PostgreSQL server using CREATE DATABASE ... WITH TEMPLATE
// to branch, rather than a per-branch container.
package postgrestemplate

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/pgerrors"
)

// TerminateGrace bounds how long Create waits after requesting that
// sessions on the template database terminate before giving up with a
// TemplateBusy error.
const TerminateGrace = 5 * time.Second

// Backend is the PostgresTemplate implementation of backend.Backend.
type Backend struct {
	cfg  config.PostgresTemplateConfig
	pool *pgxpool.Pool
}

// New connects to the configured PostgreSQL server and returns a Backend.
func New(cfg config.PostgresTemplateConfig) (*Backend, error) {
	pool, err := pgxpool.New(context.Background(), connString(cfg, "postgres"))
	if err != nil {
		return nil, pgerrors.BackendUnavailable(string(domain.BackendPostgresTemplate), err.Error())
	}
	return &Backend{cfg: cfg, pool: pool}, nil
}

func connString(cfg config.PostgresTemplateConfig, database string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, database, sslMode)
}

func (b *Backend) Kind() domain.BackendKind { return domain.BackendPostgresTemplate }

func escapeIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Create terminates any active sessions on the parent (template) database
// and issues CREATE DATABASE ... WITH TEMPLATE to clone it.
func (b *Backend) Create(ctx context.Context, opts backend.CreateOptions) (*domain.Branch, error) {
	templateName := opts.DatabaseName + "_template_source"
	if opts.Parent != nil {
		templateName = opts.Parent.DatabaseName
	} else {
		// The project root has no parent to clone from; it is the
		// template itself, assumed to already exist on the server.
		templateName = opts.DatabaseName
	}

	if opts.Parent != nil {
		if err := b.terminateConnections(ctx, templateName); err != nil {
			return nil, err
		}

		query := fmt.Sprintf("CREATE DATABASE %s WITH TEMPLATE %s",
			escapeIdentifier(opts.DatabaseName), escapeIdentifier(templateName))
		if _, err := b.pool.Exec(ctx, query); err != nil {
			return nil, pgerrors.RemoteApiError("postgres_template", err).WithContext("database", opts.DatabaseName)
		}
	}

	branch := &domain.Branch{
		Project:      opts.Project.Key(),
		Name:         opts.Name,
		DatabaseName: opts.DatabaseName,
		Root:         opts.Parent == nil,
		Host:         b.cfg.Host,
		Port:         b.cfg.Port,
		Status:       domain.StatusRunning,
	}
	if opts.Parent != nil {
		branch.Parent = opts.Parent.Name
	}
	return branch, nil
}

// terminateConnections requests that every other session on db disconnect,
// then polls pg_stat_activity until it is clear or the grace period lapses.
func (b *Backend) terminateConnections(ctx context.Context, db string) error {
	deadline := time.Now().Add(TerminateGrace)
	for {
		rows, err := b.pool.Query(ctx,
			"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid != pg_backend_pid()", db)
		if err != nil {
			return pgerrors.RemoteApiError("postgres_template", err)
		}
		rows.Close()

		count, err := b.activeConnections(ctx, db)
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return pgerrors.TemplateBusy(db)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func (b *Backend) activeConnections(ctx context.Context, db string) (int, error) {
	var count int
	err := b.pool.QueryRow(ctx,
		"SELECT count(*) FROM pg_stat_activity WHERE datname = $1 AND pid != pg_backend_pid()", db).Scan(&count)
	if err != nil {
		return 0, pgerrors.RemoteApiError("postgres_template", err)
	}
	return count, nil
}

// Delete drops the branch's database.
func (b *Backend) Delete(ctx context.Context, br *domain.Branch) error {
	if err := b.terminateConnections(ctx, br.DatabaseName); err != nil {
		return err
	}
	query := fmt.Sprintf("DROP DATABASE IF EXISTS %s", escapeIdentifier(br.DatabaseName))
	if _, err := b.pool.Exec(ctx, query); err != nil {
		return pgerrors.RemoteApiError("postgres_template", err).WithContext("database", br.DatabaseName)
	}
	return nil
}

// List enumerates databases on the server; callers filter by prefix.
func (b *Backend) List(ctx context.Context, project domain.Project) ([]*domain.Branch, error) {
	rows, err := b.pool.Query(ctx, "SELECT datname FROM pg_database WHERE datistemplate = false")
	if err != nil {
		return nil, pgerrors.RemoteApiError("postgres_template", err)
	}
	defer rows.Close()

	var branches []*domain.Branch
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, pgerrors.RemoteApiError("postgres_template", err)
		}
		branches = append(branches, &domain.Branch{
			DatabaseName: name,
			Host:         b.cfg.Host,
			Port:         b.cfg.Port,
			Status:       domain.StatusRunning,
		})
	}
	return branches, rows.Err()
}

// Start is a no-op: a template-branched database has no independent
// process to start, only the shared server.
func (b *Backend) Start(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	br.Status = domain.StatusRunning
	return br, nil
}

// Stop is a no-op for the same reason Start is.
func (b *Backend) Stop(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	br.Status = domain.StatusStopped
	return br, nil
}

// Reset drops and re-creates the branch's database from its parent.
func (b *Backend) Reset(ctx context.Context, br *domain.Branch, parent *domain.Branch) (*domain.Branch, error) {
	if parent == nil {
		return br, fmt.Errorf("reset requires a parent branch, %q is the project root", br.Name)
	}
	if err := b.Delete(ctx, br); err != nil {
		return br, err
	}
	return b.Create(ctx, backend.CreateOptions{DatabaseName: br.DatabaseName, Name: br.Name, Parent: parent})
}

// Connection returns how to reach the branch's database on the shared server.
func (b *Backend) Connection(ctx context.Context, br *domain.Branch) (domain.ConnectionInfo, error) {
	return domain.ConnectionInfo{
		Host:     b.cfg.Host,
		Port:     b.cfg.Port,
		Database: br.DatabaseName,
		User:     b.cfg.User,
		Password: b.cfg.Password,
	}, nil
}

// Health pings the shared server.
func (b *Backend) Health(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return pgerrors.BackendUnavailable(string(domain.BackendPostgresTemplate), err.Error())
	}
	return nil
}
