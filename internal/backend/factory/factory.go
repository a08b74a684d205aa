// Package factory constructs the Backend implementation selected by
// config. It lives outside package backend so that it can import the
// concrete backend implementations (which themselves depend on the
// backend package for the Backend interface and CreateOptions) without
// creating an import cycle.
package factory

import (
	"fmt"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/backend/dblab"
	"github.com/keylty/pgbranch/internal/backend/local"
	"github.com/keylty/pgbranch/internal/backend/neon"
	"github.com/keylty/pgbranch/internal/backend/postgrestemplate"
	"github.com/keylty/pgbranch/internal/backend/xata"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/storagedriver"
)

// New constructs the Backend implementation selected by cfg.Backend.Kind.
// strategy is the already-detected Copy-on-Write strategy, only consulted
// for domain.BackendLocal.
func New(cfg *config.Config, strategy storagedriver.Strategy, portStart int) (backend.Backend, error) {
	switch cfg.Backend.Kind {
	case domain.BackendLocal, "":
		return local.New(cfg.Backend.Local, portStart, strategy, nil, nil), nil
	case domain.BackendPostgresTemplate:
		return postgrestemplate.New(cfg.Backend.PostgresTemplate)
	case domain.BackendNeon:
		return neon.New(cfg.Backend.Neon)
	case domain.BackendDBLab:
		return dblab.New(cfg.Backend.DBLab)
	case domain.BackendXata:
		return xata.New(cfg.Backend.Xata)
	default:
		return nil, fmt.Errorf("unknown backend kind: %q", cfg.Backend.Kind)
	}
}
