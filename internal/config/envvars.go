package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvVarMapping maps environment variables to the config path they
// override. PGBRANCH_CURRENT_BRANCH_DISABLED and PGBRANCH_ZFS_DATASET are
// deliberately absent: the former is evaluated directly by the dispatch
// package as a per-invocation kill-switch, and the latter seeds the
// storage driver's ZFS dataset outside of Config entirely (see SPEC_FULL.md).
var EnvVarMapping = map[string]string{
	"PGBRANCH_DISABLED":             "behavior.disabled",
	"PGBRANCH_SKIP_HOOKS":           "behavior.skip_hooks",
	"PGBRANCH_STRICT_HOOKS":         "behavior.strict_hooks",
	"PGBRANCH_AUTO_CREATE":          "git.auto_create_on_branch",
	"PGBRANCH_AUTO_SWITCH":          "git.auto_switch_on_branch",
	"PGBRANCH_BRANCH_FILTER_REGEX":  "git.auto_create_branch_filter",
	"PGBRANCH_DISABLED_BRANCHES":    "git.disabled_branches",
	"PGBRANCH_DATABASE_HOST":        "backend.postgres_template.host",
	"PGBRANCH_DATABASE_PORT":        "backend.postgres_template.port",
	"PGBRANCH_DATABASE_USER":        "backend.postgres_template.user",
	"PGBRANCH_DATABASE_PASSWORD":    "backend.postgres_template.password",
	"PGBRANCH_DATABASE_PREFIX":      "backend.database_prefix",
}

// ApplyEnvVars applies environment variable overrides to a TrackedConfig
// and returns the list of config paths that were overridden.
func ApplyEnvVars(tc *TrackedConfig) []string {
	var overridden []string

	for envVar, configPath := range EnvVarMapping {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if applyEnvVar(tc.Config, configPath, value) {
			tc.SetSource(configPath, SourceEnv)
			overridden = append(overridden, configPath)
		}
	}

	return overridden
}

// applyEnvVar applies a single environment variable to the config. Returns
// true if the value was recognized and applied.
func applyEnvVar(cfg *Config, path, value string) bool {
	switch path {
	case "behavior.disabled":
		cfg.Behavior.Disabled = parseBool(value)
	case "behavior.skip_hooks":
		cfg.Behavior.SkipHooks = parseBool(value)
	case "behavior.strict_hooks":
		cfg.Behavior.StrictHooks = parseBool(value)
	case "git.auto_create_on_branch":
		cfg.Git.AutoCreateOnBranch = parseBool(value)
	case "git.auto_switch_on_branch":
		cfg.Git.AutoSwitchOnBranch = parseBool(value)
	case "git.auto_create_branch_filter":
		cfg.Git.AutoCreateBranchFilter = value
	case "git.disabled_branches":
		cfg.Git.DisabledBranches = splitCSV(value)
	case "backend.postgres_template.host":
		cfg.Backend.PostgresTemplate.Host = value
	case "backend.postgres_template.port":
		if v, err := strconv.Atoi(value); err == nil {
			cfg.Backend.PostgresTemplate.Port = v
		}
	case "backend.postgres_template.user":
		cfg.Backend.PostgresTemplate.User = value
	case "backend.postgres_template.password":
		cfg.Backend.PostgresTemplate.Password = value
	case "backend.database_prefix":
		cfg.Backend.DatabasePrefix = value
	default:
		return false
	}
	return true
}

// parseBool parses a boolean string case-insensitively.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitCSV splits a comma-separated list, trimming whitespace around each item.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
