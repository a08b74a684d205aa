package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads the committed config from the repo root, falling back to
// Default() if no file is present.
func Load(repoRoot string) (*Config, error) {
	return LoadFrom(filepath.Join(repoRoot, CommittedFileName))
}

// LoadFrom loads a single config file, starting from Default() so missing
// fields keep their built-in values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the committed config to the repo root.
func (c *Config) Save(repoRoot string) error {
	return c.SaveTo(filepath.Join(repoRoot, CommittedFileName))
}

// SaveTo writes c to path atomically relative to an existing directory.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// Init writes the initial committed config for a new project. It refuses
// to overwrite an existing file unless force is set.
func Init(repoRoot string, force bool, cfg *Config) error {
	path := filepath.Join(repoRoot, CommittedFileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", CommittedFileName)
		}
	}
	return cfg.SaveTo(path)
}

// IsInitialized reports whether repoRoot has a committed pgbranch config.
func IsInitialized(repoRoot string) bool {
	_, err := os.Stat(filepath.Join(repoRoot, CommittedFileName))
	return err == nil
}

// RequireInit returns an error if repoRoot has no committed pgbranch config.
func RequireInit(repoRoot string) error {
	if !IsInitialized(repoRoot) {
		return fmt.Errorf("no %s found in %s — run 'pgbranch init' first", CommittedFileName, repoRoot)
	}
	return nil
}
