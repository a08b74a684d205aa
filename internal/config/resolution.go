package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolutionEntry represents one level in the resolution chain for a config key.
type ResolutionEntry struct {
	Level     ConfigLevel
	Source    ConfigSource
	Path      string
	Value     string
	IsSet     bool
	IsWinning bool
}

// ResolutionChain shows the value (or absence of one) at every layer for a
// single config key, and which layer won — the data `config -v` renders.
type ResolutionChain struct {
	Key         string
	FinalValue  string
	WinningFrom TrackedSource
	Entries     []ResolutionEntry
}

// GetResolutionChain returns the full resolution chain for a config key.
func (l *Loader) GetResolutionChain(key string) (*ResolutionChain, error) {
	chain := &ResolutionChain{Key: key}

	defaultCfg := Default()
	defaultVal, _ := defaultCfg.GetValue(key)
	chain.Entries = append(chain.Entries, ResolutionEntry{
		Level:  LevelDefaults,
		Source: SourceDefault,
		Path:   "builtin",
		Value:  defaultVal,
		IsSet:  true,
	})

	committedPath := filepath.Join(l.projectDir, CommittedFileName)
	entry := ResolutionEntry{Level: LevelCommitted, Source: SourceCommitted, Path: committedPath}
	if val, found := getValueFromFile(committedPath, key); found {
		entry.Value, entry.IsSet = val, true
	}
	chain.Entries = append(chain.Entries, entry)

	localPath := filepath.Join(l.projectDir, LocalFileName)
	entry = ResolutionEntry{Level: LevelLocal, Source: SourceLocal, Path: localPath}
	if val, found := getValueFromFile(localPath, key); found {
		entry.Value, entry.IsSet = val, true
	}
	chain.Entries = append(chain.Entries, entry)

	if envVar := getEnvVarForPath(key); envVar != "" {
		entry = ResolutionEntry{Level: LevelRuntime, Source: SourceEnv, Path: envVar}
		if val := os.Getenv(envVar); val != "" {
			entry.Value, entry.IsSet = val, true
		}
		chain.Entries = append(chain.Entries, entry)
	}

	tc, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	chain.FinalValue, _ = tc.Config.GetValue(key)
	chain.WinningFrom = tc.GetTrackedSource(key)

	for i := range chain.Entries {
		e := &chain.Entries[i]
		if e.IsSet && e.Source == chain.WinningFrom.Source {
			if chain.WinningFrom.Path == "" || e.Path == chain.WinningFrom.Path {
				e.IsWinning = true
			}
		}
	}

	return chain, nil
}

// getEnvVarForPath returns the environment variable name for a config path.
func getEnvVarForPath(path string) string {
	for envVar, configPath := range EnvVarMapping {
		if configPath == path {
			return envVar
		}
	}
	return ""
}

// getValueFromFile reads a specific key from a config file, reporting
// whether the key was actually present rather than merely matching the
// default.
func getValueFromFile(path, key string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return "", false
	}

	val, err := cfg.GetValue(key)
	if err != nil {
		return "", false
	}

	defaultCfg := Default()
	defaultVal, _ := defaultCfg.GetValue(key)
	if val != defaultVal {
		return val, true
	}
	if keyExistsInYAML(data, key) {
		return val, true
	}
	return "", false
}

// keyExistsInYAML checks whether a dotted key path exists in raw YAML data.
func keyExistsInYAML(data []byte, key string) bool {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false
	}

	parts := strings.Split(key, ".")
	current := raw
	for i, part := range parts {
		val, ok := current[part]
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			return true
		}
		nested, ok := val.(map[string]interface{})
		if !ok {
			return false
		}
		current = nested
	}
	return false
}
