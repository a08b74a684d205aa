package config

import (
	"time"

	"github.com/keylty/pgbranch/internal/domain"
)

// Default returns the built-in configuration: a Local backend with
// Copy-on-Write branching, no auto-create/auto-switch hook behavior, and a
// 2-minute operation deadline.
func Default() *Config {
	return &Config{
		Version: 1,
		Git: GitConfig{
			MainBranch:         "",
			AutoCreateOnBranch: false,
			AutoSwitchOnBranch: false,
		},
		Behavior: BehaviorConfig{
			Disabled:         false,
			SkipHooks:        false,
			NonInteractive:   false,
			StrictHooks:      false,
			OperationTimeout: 120 * time.Second,
			PortRangeStart:   55432,
			CleanupMaxCount:  10,
		},
		Backend: BackendConfig{
			Kind:           domain.BackendLocal,
			NamingStrategy: domain.NamingReplace,
			DatabasePrefix: "pgbranch",
			Local: LocalBackendConfig{
				Image:        "postgres:16",
				DatabaseUser: "postgres",
			},
			PostgresTemplate: PostgresTemplateConfig{
				Port:    5432,
				User:    "postgres",
				SSLMode: "disable",
			},
		},
	}
}
