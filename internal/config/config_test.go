package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keylty/pgbranch/internal/domain"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Backend.Kind != domain.BackendLocal {
		t.Errorf("default backend kind = %q, want %q", cfg.Backend.Kind, domain.BackendLocal)
	}
	if cfg.Behavior.PortRangeStart != 55432 {
		t.Errorf("default port range start = %d, want 55432", cfg.Behavior.PortRangeStart)
	}
	if cfg.Backend.NamingStrategy != domain.NamingReplace {
		t.Errorf("default naming strategy = %q, want %q", cfg.Backend.NamingStrategy, domain.NamingReplace)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.Kind != Default().Backend.Kind {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Git.MainBranch = "trunk"
	cfg.Backend.Kind = domain.BackendPostgresTemplate
	cfg.Git.DisabledBranches = []string{"release/*"}

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Git.MainBranch != "trunk" {
		t.Errorf("got main_branch %q, want trunk", loaded.Git.MainBranch)
	}
	if loaded.Backend.Kind != domain.BackendPostgresTemplate {
		t.Errorf("got backend kind %q, want %q", loaded.Backend.Kind, domain.BackendPostgresTemplate)
	}
	if len(loaded.Git.DisabledBranches) != 1 || loaded.Git.DisabledBranches[0] != "release/*" {
		t.Errorf("got disabled_branches %v", loaded.Git.DisabledBranches)
	}
}

func TestInitRefusesWithoutForce(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, false, Default()); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := Init(dir, false, Default()); err == nil {
		t.Fatal("expected error on second Init without force")
	}
	if err := Init(dir, true, Default()); err != nil {
		t.Fatalf("Init with force: %v", err)
	}
}

func TestIsInitializedAndRequireInit(t *testing.T) {
	dir := t.TempDir()
	if IsInitialized(dir) {
		t.Error("expected uninitialized dir to report false")
	}
	if err := RequireInit(dir); err == nil {
		t.Error("expected RequireInit to fail before init")
	}

	if err := os.WriteFile(filepath.Join(dir, CommittedFileName), []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsInitialized(dir) {
		t.Error("expected dir with committed config to report true")
	}
	if err := RequireInit(dir); err != nil {
		t.Errorf("RequireInit: %v", err)
	}
}

func TestKillSwitchReasons(t *testing.T) {
	cfg := Default()
	match := func(pattern, branch string) bool { return pattern == branch }

	if reason := cfg.KillSwitchReasons("main", match); reason != "" {
		t.Errorf("expected no kill switch, got %q", reason)
	}

	cfg.Behavior.Disabled = true
	if reason := cfg.KillSwitchReasons("main", match); reason == "" {
		t.Error("expected behavior.disabled to fire")
	}

	cfg2 := Default()
	cfg2.Git.DisabledBranches = []string{"main"}
	if reason := cfg2.KillSwitchReasons("main", match); reason == "" {
		t.Error("expected disabled_branches match to fire")
	}
}
