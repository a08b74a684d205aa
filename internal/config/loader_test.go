package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderMergePrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CommittedFileName, "git:\n  main_branch: main\nbehavior:\n  port_range_start: 60000\n")
	writeFile(t, dir, LocalFileName, "behavior:\n  port_range_start: 61000\n")

	tc, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tc.Config.Git.MainBranch != "main" {
		t.Errorf("got main_branch %q, want main", tc.Config.Git.MainBranch)
	}
	if tc.Config.Behavior.PortRangeStart != 61000 {
		t.Errorf("got port_range_start %d, want 61000 (local should win over committed)", tc.Config.Behavior.PortRangeStart)
	}
	if tc.GetSource("behavior.port_range_start") != SourceLocal {
		t.Errorf("got source %q, want local", tc.GetSource("behavior.port_range_start"))
	}
	if tc.GetSource("git.main_branch") != SourceCommitted {
		t.Errorf("got source %q, want committed", tc.GetSource("git.main_branch"))
	}
}

func TestLoaderEnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CommittedFileName, "behavior:\n  disabled: false\n")

	t.Setenv("PGBRANCH_DISABLED", "true")

	tc, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !tc.Config.Behavior.Disabled {
		t.Error("expected env var to override committed file")
	}
	if tc.GetSource("behavior.disabled") != SourceEnv {
		t.Errorf("got source %q, want env", tc.GetSource("behavior.disabled"))
	}
}

func TestLoaderNoFilesUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	tc, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tc.Config.Behavior.PortRangeStart != Default().Behavior.PortRangeStart {
		t.Errorf("expected default port range start")
	}
	if tc.GetSource("behavior.port_range_start") != SourceDefault {
		t.Errorf("got source %q, want default", tc.GetSource("behavior.port_range_start"))
	}
}

func TestLoaderDisabledBranchesEnvCSV(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PGBRANCH_DISABLED_BRANCHES", "release/*, hotfix/*")

	tc, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"release/*", "hotfix/*"}
	got := tc.Config.Git.DisabledBranches
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
