// Package state implements the per-user local State Store: a single
// YAML file, keyed by canonicalised project root, holding each
// project's branch table, current branch, and detected backend
// settings.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/pgerrors"
	"github.com/keylty/pgbranch/internal/util"
	"gopkg.in/yaml.v3"
)

// Version is the current on-disk schema version. Bump it whenever the
// Store or ProjectState shape changes incompatibly; Load rejects any
// file whose Version differs.
const Version = 1

// DirName and FileName locate the state file under the user's config
// directory, e.g. ~/.config/pgbranch/local_state.yml on Linux.
const (
	DirName  = "pgbranch"
	FileName = "local_state.yml"
)

// ProjectState holds everything the Lifecycle Engine needs to know
// about one project: its branch forest, which branch is current, and
// the backend/storage settings detected or configured for it.
type ProjectState struct {
	Branches        map[string]*domain.Branch `yaml:"branches"`
	CurrentBranch   string                    `yaml:"current_branch,omitempty"`
	StorageStrategy string                    `yaml:"storage_strategy,omitempty"`
	BackendKind     domain.BackendKind        `yaml:"backend_kind,omitempty"`
	DataRoot        string                    `yaml:"data_root,omitempty"`
	ZFSDataset      string                    `yaml:"zfs_dataset,omitempty"`
	NextPort        int                       `yaml:"next_port,omitempty"`
	UpdatedAt       time.Time                 `yaml:"updated_at,omitempty"`
}

func newProjectState() *ProjectState {
	return &ProjectState{Branches: make(map[string]*domain.Branch)}
}

// Root returns the project's root branch, if one has been recorded.
func (p *ProjectState) Root() *domain.Branch {
	for _, b := range p.Branches {
		if b.IsRoot() {
			return b
		}
	}
	return nil
}

// Children returns the names of branches whose parent is name.
func (p *ProjectState) Children(name string) []string {
	var out []string
	for n, b := range p.Branches {
		if b.Parent == name {
			out = append(out, n)
		}
	}
	return out
}

// Pending returns branches left in Creating or Deleting status, the
// markers a crash between backend call and state commit leaves behind
// for `doctor` to reconcile.
func (p *ProjectState) Pending() []*domain.Branch {
	var out []*domain.Branch
	for _, b := range p.Branches {
		if b.Status == domain.StatusCreating || b.Status == domain.StatusDestroyed {
			out = append(out, b)
		}
	}
	return out
}

// Store is the root of the state file: a schema version plus one
// ProjectState per project key (domain.Project.Key()).
type Store struct {
	Version  int                      `yaml:"version"`
	Projects map[string]*ProjectState `yaml:"projects"`
}

// DefaultPath returns the path of the local state file under the
// user's config directory, creating no directories itself.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, DirName, FileName), nil
}

// Load reads and parses the state file at path. A missing file is not
// an error: it yields an empty, freshly versioned Store. A version
// mismatch fails with pgerrors.StateIncompatible.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{Version: Version, Projects: make(map[string]*ProjectState)}, nil
		}
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}

	var s Store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}

	if s.Version == 0 {
		s.Version = Version
	}
	if s.Version != Version {
		return nil, pgerrors.StateIncompatible(s.Version, Version)
	}
	if s.Projects == nil {
		s.Projects = make(map[string]*ProjectState)
	}
	for _, p := range s.Projects {
		if p.Branches == nil {
			p.Branches = make(map[string]*domain.Branch)
		}
	}
	return &s, nil
}

// LoadDefault loads the state file from DefaultPath.
func LoadDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save atomically persists the store to path.
func (s *Store) Save(path string) error {
	if s.Version == 0 {
		s.Version = Version
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0o644)
}

// SaveDefault persists the store to DefaultPath.
func (s *Store) SaveDefault() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return s.Save(path)
}

// Project returns the ProjectState for key, creating and registering
// an empty one if it does not exist yet.
func (s *Store) Project(key string) *ProjectState {
	if s.Projects == nil {
		s.Projects = make(map[string]*ProjectState)
	}
	p, ok := s.Projects[key]
	if !ok {
		p = newProjectState()
		s.Projects[key] = p
	}
	return p
}

// HasProject reports whether key has a recorded ProjectState without
// creating one.
func (s *Store) HasProject(key string) bool {
	_, ok := s.Projects[key]
	return ok
}

// ReserveCreating records a Creating placeholder for a not-yet-built
// branch. It is the first half of the Lifecycle Engine's two-phase
// write: call this before invoking the backend, then Commit (or
// Remove, on failure) once the backend call returns.
func (p *ProjectState) ReserveCreating(b *domain.Branch) {
	b.Status = domain.StatusCreating
	b.CreatedAt = time.Now()
	p.Branches[b.Name] = b
	p.UpdatedAt = time.Now()
}

// ReserveDeleting marks an existing branch as being torn down.
func (p *ProjectState) ReserveDeleting(name string) {
	if b, ok := p.Branches[name]; ok {
		b.Status = domain.StatusDestroyed
		p.UpdatedAt = time.Now()
	}
}

// Commit finalises a branch's status after a successful backend call.
func (p *ProjectState) Commit(name string, status domain.Status) {
	if b, ok := p.Branches[name]; ok {
		b.Status = status
		p.UpdatedAt = time.Now()
	}
}

// Remove deletes a branch entry outright, used both to roll back a
// failed create and to finish a completed delete.
func (p *ProjectState) Remove(name string) {
	delete(p.Branches, name)
	if p.CurrentBranch == name {
		p.CurrentBranch = ""
	}
	p.UpdatedAt = time.Now()
}

// SetCurrent records name as the project's current branch.
func (p *ProjectState) SetCurrent(name string) {
	p.CurrentBranch = name
	p.UpdatedAt = time.Now()
}
