package config

import (
	"testing"
)

func TestGetResolutionChain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CommittedFileName, "behavior:\n  port_range_start: 60000\n")
	writeFile(t, dir, LocalFileName, "behavior:\n  port_range_start: 61000\n")

	chain, err := NewLoader(dir).GetResolutionChain("behavior.port_range_start")
	if err != nil {
		t.Fatalf("GetResolutionChain: %v", err)
	}

	if chain.FinalValue != "61000" {
		t.Errorf("got final value %q, want 61000", chain.FinalValue)
	}
	if chain.WinningFrom.Source != SourceLocal {
		t.Errorf("got winning source %q, want local", chain.WinningFrom.Source)
	}

	var sawDefault, sawCommitted, sawLocal, sawWinningLocal bool
	for _, e := range chain.Entries {
		switch e.Source {
		case SourceDefault:
			sawDefault = true
		case SourceCommitted:
			sawCommitted = true
			if e.Value != "60000" {
				t.Errorf("committed entry value = %q, want 60000", e.Value)
			}
		case SourceLocal:
			sawLocal = true
			if e.IsWinning {
				sawWinningLocal = true
			}
		}
	}
	if !sawDefault || !sawCommitted || !sawLocal {
		t.Errorf("expected entries for default, committed, and local, got %+v", chain.Entries)
	}
	if !sawWinningLocal {
		t.Error("expected the local entry to be marked winning")
	}
}

func TestGetResolutionChainEnvEntry(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PGBRANCH_DISABLED", "true")

	chain, err := NewLoader(dir).GetResolutionChain("behavior.disabled")
	if err != nil {
		t.Fatalf("GetResolutionChain: %v", err)
	}
	if chain.FinalValue != "true" {
		t.Errorf("got final value %q, want true", chain.FinalValue)
	}

	var sawEnv bool
	for _, e := range chain.Entries {
		if e.Source == SourceEnv {
			sawEnv = true
			if e.Path != "PGBRANCH_DISABLED" {
				t.Errorf("got env path %q, want PGBRANCH_DISABLED", e.Path)
			}
		}
	}
	if !sawEnv {
		t.Error("expected an env entry in the chain")
	}
}
