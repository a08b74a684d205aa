package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keylty/pgbranch/internal/domain"
)

func TestLoadMissingFileReturnsEmptyStore(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Version != Version {
		t.Errorf("got version %d, want %d", s.Version, Version)
	}
	if len(s.Projects) != 0 {
		t.Errorf("expected no projects, got %d", len(s.Projects))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local_state.yml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	proj := s.Project("/repo/one")
	proj.Branches["main"] = &domain.Branch{Name: "main", DatabaseName: "pgbranch", Root: true, Status: domain.StatusRunning}
	proj.SetCurrent("main")

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := loaded.Project("/repo/one")
	if got.CurrentBranch != "main" {
		t.Errorf("got current branch %q, want main", got.CurrentBranch)
	}
	if got.Branches["main"].DatabaseName != "pgbranch" {
		t.Errorf("got database name %q, want pgbranch", got.Branches["main"].DatabaseName)
	}
}

func TestLoadRejectsIncompatibleVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local_state.yml")
	content := "version: 99\nprojects: {}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected StateIncompatible error")
	}
}

func TestTwoPhaseWriteCommit(t *testing.T) {
	s := &Store{Version: Version, Projects: make(map[string]*ProjectState)}
	proj := s.Project("/repo/two")

	b := &domain.Branch{Name: "feature-x", DatabaseName: "pgbranch_feature_x", Parent: "main"}
	proj.ReserveCreating(b)
	if proj.Branches["feature-x"].Status != domain.StatusCreating {
		t.Fatalf("expected Creating status after reserve, got %s", proj.Branches["feature-x"].Status)
	}

	proj.Commit("feature-x", domain.StatusRunning)
	if proj.Branches["feature-x"].Status != domain.StatusRunning {
		t.Errorf("expected Running status after commit, got %s", proj.Branches["feature-x"].Status)
	}
}

func TestTwoPhaseWriteRollback(t *testing.T) {
	s := &Store{Version: Version, Projects: make(map[string]*ProjectState)}
	proj := s.Project("/repo/three")

	b := &domain.Branch{Name: "feature-y", DatabaseName: "pgbranch_feature_y", Parent: "main"}
	proj.ReserveCreating(b)
	proj.Remove("feature-y")

	if _, ok := proj.Branches["feature-y"]; ok {
		t.Error("expected branch to be removed after rollback")
	}
}

func TestPendingReturnsUnresolvedMarkers(t *testing.T) {
	proj := newProjectState()
	proj.Branches["a"] = &domain.Branch{Name: "a", Status: domain.StatusRunning}
	proj.Branches["b"] = &domain.Branch{Name: "b", Status: domain.StatusCreating}

	pending := proj.Pending()
	if len(pending) != 1 || pending[0].Name != "b" {
		t.Errorf("expected only branch b pending, got %+v", pending)
	}
}
