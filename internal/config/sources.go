package config

import "fmt"

// ConfigLevel is one of the four conceptual configuration layers. Higher
// levels override lower ones.
type ConfigLevel int

const (
	LevelDefaults ConfigLevel = iota
	LevelCommitted
	LevelLocal
	LevelRuntime
)

func (l ConfigLevel) String() string {
	return levelNames[l]
}

var levelNames = map[ConfigLevel]string{
	LevelDefaults:  "default",
	LevelCommitted: "committed",
	LevelLocal:     "local",
	LevelRuntime:   "runtime",
}

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	SourceDefault   ConfigSource = "default"
	SourceCommitted ConfigSource = "committed"
	SourceLocal     ConfigSource = "local"
	SourceEnv       ConfigSource = "env"
	SourceFlag      ConfigSource = "flag"
)

// Level returns the ConfigLevel for this source.
func (s ConfigSource) Level() ConfigLevel {
	switch s {
	case SourceDefault:
		return LevelDefaults
	case SourceCommitted:
		return LevelCommitted
	case SourceLocal:
		return LevelLocal
	case SourceEnv, SourceFlag:
		return LevelRuntime
	default:
		return LevelDefaults
	}
}

// TrackedSource carries both the source type and the file path it came from.
type TrackedSource struct {
	Source ConfigSource
	Path   string
}

func (ts TrackedSource) String() string {
	if ts.Path == "" {
		return string(ts.Source)
	}
	return fmt.Sprintf("%s: %s", ts.Source, ts.Path)
}

// TrackedConfig wraps a Config with a per-key record of which layer
// supplied the effective value — the data config-show -v renders.
type TrackedConfig struct {
	Config         *Config
	Sources        map[string]ConfigSource
	TrackedSources map[string]TrackedSource
}

// NewTrackedConfig creates a TrackedConfig seeded with Default().
func NewTrackedConfig() *TrackedConfig {
	return &TrackedConfig{
		Config:         Default(),
		Sources:        make(map[string]ConfigSource),
		TrackedSources: make(map[string]TrackedSource),
	}
}

// SetSource records the source for a config path.
func (tc *TrackedConfig) SetSource(path string, source ConfigSource) {
	tc.Sources[path] = source
	tc.TrackedSources[path] = TrackedSource{Source: source}
}

// SetSourceWithPath records the source and originating file path for a
// config path.
func (tc *TrackedConfig) SetSourceWithPath(path string, source ConfigSource, filePath string) {
	tc.Sources[path] = source
	tc.TrackedSources[path] = TrackedSource{Source: source, Path: filePath}
}

// GetSource returns the source for a config path, defaulting to
// SourceDefault if nothing overrode it.
func (tc *TrackedConfig) GetSource(path string) ConfigSource {
	if source, ok := tc.Sources[path]; ok {
		return source
	}
	return SourceDefault
}

// GetTrackedSource returns the full source info for a config path.
func (tc *TrackedConfig) GetTrackedSource(path string) TrackedSource {
	if ts, ok := tc.TrackedSources[path]; ok {
		return ts
	}
	return TrackedSource{Source: SourceDefault}
}
