// Package domain holds the project/branch value types shared across
// pgbranch's config, state, backend, and lifecycle packages.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle status of a Branch.
type Status string

const (
	StatusCreating  Status = "creating"
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusErrored   Status = "errored"
	StatusDestroyed Status = "destroyed"
)

// BackendKind identifies which Backend implementation owns a branch.
type BackendKind string

const (
	BackendLocal            BackendKind = "local"
	BackendPostgresTemplate BackendKind = "postgres_template"
	BackendNeon             BackendKind = "neon"
	BackendDBLab            BackendKind = "dblab"
	BackendXata             BackendKind = "xata"
)

// Branch is a database clone tied to a Git branch name.
type Branch struct {
	Project      string    `yaml:"project" json:"project"`
	Name         string    `yaml:"name" json:"name"`
	DatabaseName string    `yaml:"database_name" json:"database_name"`
	Parent       string    `yaml:"parent,omitempty" json:"parent,omitempty"`
	Root         bool      `yaml:"root,omitempty" json:"root,omitempty"`
	Handle       string    `yaml:"handle,omitempty" json:"handle,omitempty"` // container id / remote branch id / template db name
	Host         string    `yaml:"host,omitempty" json:"host,omitempty"`
	Port         int       `yaml:"port,omitempty" json:"port,omitempty"`
	Status       Status    `yaml:"status" json:"status"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
}

// IsRoot reports whether this branch is the project's root (main/template) branch.
func (b *Branch) IsRoot() bool {
	return b.Root || b.Parent == ""
}

// Project identifies a logical pgbranch project: a repo root plus an
// optional name, supporting multiple named projects per repository.
type Project struct {
	RepoRoot string `yaml:"repo_root" json:"repo_root"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
}

// Key returns the canonical identifier used to index this project in the
// State Store.
func (p Project) Key() string {
	if p.Name == "" {
		return p.RepoRoot
	}
	return p.RepoRoot + "#" + p.Name
}

// ConnectionInfo describes how to reach a branch's database.
type ConnectionInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// URI renders the connection as a postgresql:// URI.
func (c ConnectionInfo) URI() string {
	userinfo := c.User
	if c.Password != "" {
		userinfo += ":" + c.Password
	}
	return "postgresql://" + userinfo + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database
}

// ConnectionString renders the connection string, in the same
// postgresql:// URI form as URI, used as the `connection_string` field of
// the --format json output.
func (c ConnectionInfo) ConnectionString() string {
	return c.URI()
}

// Env renders the connection as DATABASE_* environment variable
// assignments, one per line, for `connection --format env`.
func (c ConnectionInfo) Env() string {
	return strings.Join([]string{
		"DATABASE_HOST=" + c.Host,
		"DATABASE_PORT=" + strconv.Itoa(c.Port),
		"DATABASE_NAME=" + c.Database,
		"DATABASE_USER=" + c.User,
		"DATABASE_URL=" + c.URI(),
	}, "\n")
}
