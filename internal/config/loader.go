package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader resolves the effective config for a project rooted at projectDir.
type Loader struct {
	projectDir string
}

// NewLoader returns a Loader rooted at projectDir (the Git repo root).
func NewLoader(projectDir string) *Loader {
	return &Loader{projectDir: projectDir}
}

// Load resolves the effective config in precedence order: env > local file
// > committed file > built-in defaults.
func (l *Loader) Load() (*TrackedConfig, error) {
	tc := NewTrackedConfig()
	markDefaults(tc)

	committedPath := filepath.Join(l.projectDir, CommittedFileName)
	if _, err := os.Stat(committedPath); err == nil {
		if err := mergeFromFile(tc, committedPath, SourceCommitted); err != nil {
			return nil, err
		}
	}

	localPath := filepath.Join(l.projectDir, LocalFileName)
	if _, err := os.Stat(localPath); err == nil {
		if err := mergeFromFile(tc, localPath, SourceLocal); err != nil {
			return nil, err
		}
	}

	ApplyEnvVars(tc)

	return tc, nil
}

// mergeFromFile merges configuration from path into tc, tracking which
// fields path actually set (as opposed to fields that merely match
// Config's zero value).
func mergeFromFile(tc *TrackedConfig, path string, source ConfigSource) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	mergeConfig(tc, &fileCfg, raw, source, path)
	return nil
}

func mergeConfig(tc *TrackedConfig, fileCfg *Config, raw map[string]interface{}, source ConfigSource, path string) {
	cfg := tc.Config

	if _, ok := raw["version"]; ok {
		cfg.Version = fileCfg.Version
		tc.SetSourceWithPath("version", source, path)
	}
	if _, ok := raw["post_commands"]; ok {
		cfg.PostCommands = fileCfg.PostCommands
		tc.SetSourceWithPath("post_commands", source, path)
	}

	if rawGit, ok := raw["git"].(map[string]interface{}); ok {
		mergeGitConfig(cfg, fileCfg, rawGit, tc, source, path)
	}
	if rawBehavior, ok := raw["behavior"].(map[string]interface{}); ok {
		mergeBehaviorConfig(cfg, fileCfg, rawBehavior, tc, source, path)
	}
	if rawBackend, ok := raw["backend"].(map[string]interface{}); ok {
		mergeBackendConfig(cfg, fileCfg, rawBackend, tc, source, path)
	}
}

func mergeGitConfig(cfg, fileCfg *Config, raw map[string]interface{}, tc *TrackedConfig, source ConfigSource, path string) {
	set := func(key string, apply func()) {
		if _, ok := raw[key]; ok {
			apply()
			tc.SetSourceWithPath("git."+key, source, path)
		}
	}
	set("main_branch", func() { cfg.Git.MainBranch = fileCfg.Git.MainBranch })
	set("auto_create_on_branch", func() { cfg.Git.AutoCreateOnBranch = fileCfg.Git.AutoCreateOnBranch })
	set("auto_switch_on_branch", func() { cfg.Git.AutoSwitchOnBranch = fileCfg.Git.AutoSwitchOnBranch })
	set("auto_create_branch_filter", func() { cfg.Git.AutoCreateBranchFilter = fileCfg.Git.AutoCreateBranchFilter })
	set("disabled_branches", func() { cfg.Git.DisabledBranches = fileCfg.Git.DisabledBranches })
	set("exclude_branches", func() { cfg.Git.ExcludeBranches = fileCfg.Git.ExcludeBranches })
}

func mergeBehaviorConfig(cfg, fileCfg *Config, raw map[string]interface{}, tc *TrackedConfig, source ConfigSource, path string) {
	set := func(key string, apply func()) {
		if _, ok := raw[key]; ok {
			apply()
			tc.SetSourceWithPath("behavior."+key, source, path)
		}
	}
	set("disabled", func() { cfg.Behavior.Disabled = fileCfg.Behavior.Disabled })
	set("skip_hooks", func() { cfg.Behavior.SkipHooks = fileCfg.Behavior.SkipHooks })
	set("non_interactive", func() { cfg.Behavior.NonInteractive = fileCfg.Behavior.NonInteractive })
	set("strict_hooks", func() { cfg.Behavior.StrictHooks = fileCfg.Behavior.StrictHooks })
	set("operation_timeout", func() { cfg.Behavior.OperationTimeout = fileCfg.Behavior.OperationTimeout })
	set("port_range_start", func() { cfg.Behavior.PortRangeStart = fileCfg.Behavior.PortRangeStart })
	set("cleanup_max_count", func() { cfg.Behavior.CleanupMaxCount = fileCfg.Behavior.CleanupMaxCount })
}

func mergeBackendConfig(cfg, fileCfg *Config, raw map[string]interface{}, tc *TrackedConfig, source ConfigSource, path string) {
	set := func(key string, apply func()) {
		if _, ok := raw[key]; ok {
			apply()
			tc.SetSourceWithPath("backend."+key, source, path)
		}
	}
	set("kind", func() { cfg.Backend.Kind = fileCfg.Backend.Kind })
	set("naming_strategy", func() { cfg.Backend.NamingStrategy = fileCfg.Backend.NamingStrategy })
	set("database_prefix", func() { cfg.Backend.DatabasePrefix = fileCfg.Backend.DatabasePrefix })

	if _, ok := raw["local"]; ok {
		cfg.Backend.Local = fileCfg.Backend.Local
		tc.SetSourceWithPath("backend.local", source, path)
	}
	if _, ok := raw["postgres_template"]; ok {
		cfg.Backend.PostgresTemplate = fileCfg.Backend.PostgresTemplate
		tc.SetSourceWithPath("backend.postgres_template", source, path)
	}
	if _, ok := raw["neon"]; ok {
		cfg.Backend.Neon = fileCfg.Backend.Neon
		tc.SetSourceWithPath("backend.neon", source, path)
	}
	if _, ok := raw["dblab"]; ok {
		cfg.Backend.DBLab = fileCfg.Backend.DBLab
		tc.SetSourceWithPath("backend.dblab", source, path)
	}
	if _, ok := raw["xata"]; ok {
		cfg.Backend.Xata = fileCfg.Backend.Xata
		tc.SetSourceWithPath("backend.xata", source, path)
	}
}

// markDefaults marks every known config path as sourced from Default().
func markDefaults(tc *TrackedConfig) {
	for _, path := range AllConfigPaths() {
		tc.SetSource(path, SourceDefault)
	}
}
