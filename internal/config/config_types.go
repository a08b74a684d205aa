// Package config provides layered configuration resolution for pgbranch:
// built-in defaults, the committed project file, the local override file,
// and environment variables, merged in that precedence order.
package config

import (
	"time"

	"github.com/keylty/pgbranch/internal/domain"
)

const (
	// CommittedFileName is the team-shared config file at the repo root.
	CommittedFileName = ".pgbranch.yml"
	// LocalFileName is the developer-local override file, Git-ignored.
	LocalFileName = ".pgbranch.local.yml"
	// StateDirName is the subdirectory of the user config directory holding
	// pgbranch's per-user state.
	StateDirName = "pgbranch"
	// StateFileName is the per-user local state file.
	StateFileName = "local_state.yml"
)

// GitConfig controls how the Git Adapter and Event Dispatcher react to
// branch changes.
type GitConfig struct {
	MainBranch             string   `yaml:"main_branch,omitempty"`
	AutoCreateOnBranch     bool     `yaml:"auto_create_on_branch"`
	AutoSwitchOnBranch     bool     `yaml:"auto_switch_on_branch"`
	AutoCreateBranchFilter string   `yaml:"auto_create_branch_filter,omitempty"`
	DisabledBranches       []string `yaml:"disabled_branches,omitempty"`
	ExcludeBranches        []string `yaml:"exclude_branches,omitempty"`
}

// BehaviorConfig holds process-wide knobs that aren't specific to Git or a
// backend.
type BehaviorConfig struct {
	Disabled         bool          `yaml:"disabled"`
	SkipHooks        bool          `yaml:"skip_hooks"`
	NonInteractive   bool          `yaml:"non_interactive"`
	StrictHooks      bool          `yaml:"strict_hooks"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	PortRangeStart   int           `yaml:"port_range_start"`
	CleanupMaxCount  int           `yaml:"cleanup_max_count"`
}

// LocalBackendConfig configures the Local (Docker + CoW storage) backend.
type LocalBackendConfig struct {
	Image            string `yaml:"image,omitempty"`
	DataRoot         string `yaml:"data_root,omitempty"`
	DatabaseUser     string `yaml:"database_user,omitempty"`
	DatabasePassword string `yaml:"database_password,omitempty"`
}

// PostgresTemplateConfig configures the PostgresTemplate backend: a single
// PostgreSQL server branched via CREATE DATABASE ... WITH TEMPLATE.
type PostgresTemplateConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
}

// NeonConfig configures the Neon remote branching backend.
type NeonConfig struct {
	APIKey    string `yaml:"api_key,omitempty"`
	ProjectID string `yaml:"project_id,omitempty"`
}

// DBLabConfig configures the Database Lab Engine remote backend.
type DBLabConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Token   string `yaml:"token,omitempty"`
}

// XataConfig configures the Xata remote branching backend.
type XataConfig struct {
	APIKey    string `yaml:"api_key,omitempty"`
	Workspace string `yaml:"workspace,omitempty"`
	Database  string `yaml:"database,omitempty"`
}

// BackendConfig selects and configures the active Backend implementation.
type BackendConfig struct {
	Kind           domain.BackendKind    `yaml:"kind"`
	NamingStrategy domain.NamingStrategy `yaml:"naming_strategy"`
	DatabasePrefix string                `yaml:"database_prefix,omitempty"`

	Local            LocalBackendConfig     `yaml:"local,omitempty"`
	PostgresTemplate PostgresTemplateConfig `yaml:"postgres_template,omitempty"`
	Neon             NeonConfig             `yaml:"neon,omitempty"`
	DBLab            DBLabConfig            `yaml:"dblab,omitempty"`
	Xata             XataConfig             `yaml:"xata,omitempty"`
}

// Config is the effective pgbranch configuration: the result of merging
// defaults, the committed file, the local file, and environment variables.
type Config struct {
	Version int `yaml:"version"`

	Git      GitConfig      `yaml:"git"`
	Behavior BehaviorConfig `yaml:"behavior"`
	Backend  BackendConfig  `yaml:"backend"`

	PostCommands []domain.PostCommandItem `yaml:"post_commands,omitempty"`
}

// KillSwitchReasons evaluates the config-level kill-switches (everything
// except the current branch match, which the caller supplies) and returns
// a human-readable reason for the first one that fires, or "" if none do.
func (c *Config) KillSwitchReasons(currentBranch string, branchMatches func(pattern, branch string) bool) string {
	if c.Behavior.Disabled {
		return "behavior.disabled is true"
	}
	for _, pattern := range c.Git.DisabledBranches {
		if branchMatches(pattern, currentBranch) {
			return "current branch matches disabled_branches pattern " + pattern
		}
	}
	for _, pattern := range c.Git.ExcludeBranches {
		if branchMatches(pattern, currentBranch) {
			return "current branch matches exclude_branches pattern " + pattern
		}
	}
	return ""
}
