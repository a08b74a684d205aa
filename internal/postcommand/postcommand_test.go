package postcommand

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keylty/pgbranch/internal/domain"
)

func TestExpandSubstitutesAllVariables(t *testing.T) {
	vars := Vars{BranchName: "feature", DBName: "myapp_feature", DBHost: "127.0.0.1", DBPort: "5432"}
	item := domain.PostCommandItem{Command: "echo {branch_name} {db_name} {db_host}:{db_port}"}
	got := expandItem(item, vars)
	want := "echo feature myapp_feature 127.0.0.1:5432"
	if got.Command != want {
		t.Errorf("got %q, want %q", got.Command, want)
	}
}

func TestRunExecutesRawCommand(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil, nil)
	outs, err := r.Run([]domain.PostCommandItem{{Raw: "echo hello"}}, Vars{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outs) != 1 || outs[0].Stdout != "hello\n" {
		t.Errorf("unexpected output: %+v", outs)
	}
}

func TestRunAbortsOnFailureWithoutContinueOnError(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil, nil)
	outs, err := r.Run([]domain.PostCommandItem{
		{Raw: "exit 1"},
		{Raw: "echo should-not-run"},
	}, Vars{})
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if len(outs) != 1 {
		t.Fatalf("expected queue to abort after first item, got %d outputs", len(outs))
	}
}

func TestRunContinuesOnErrorWhenFlagged(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil, nil)
	outs, err := r.Run([]domain.PostCommandItem{
		{Command: "exit 1", ContinueOnError: true},
		{Raw: "echo still-ran"},
	}, Vars{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("expected both items to run, got %d outputs", len(outs))
	}
}

func TestConditionFileExistsSkipsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil, nil)
	outs, err := r.Run([]domain.PostCommandItem{
		{Raw: "echo should-skip", Condition: "file_exists:missing.txt"},
	}, Vars{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outs[0].Skipped {
		t.Error("expected item to be skipped")
	}
}

func TestConditionEnvRunsWhenSet(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PGBRANCH_TEST_FLAG", "1")
	r := New(dir, nil, nil)
	outs, err := r.Run([]domain.PostCommandItem{
		{Raw: "echo ran", Condition: "env:PGBRANCH_TEST_FLAG"},
	}, Vars{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outs[0].Skipped {
		t.Error("expected item to run since env var is set")
	}
}

func TestReplaceCreatesFileWhenMissing(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil, nil)
	_, err := r.Run([]domain.PostCommandItem{
		{File: "config.env", Replacement: "DATABASE_URL=x", CreateIfMissing: true},
	}, Vars{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "config.env"))
	if err != nil || string(got) != "DATABASE_URL=x" {
		t.Fatalf("expected created file content, got %q err %v", got, err)
	}
}

func TestReplaceSubstitutesPatternInExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	if err := os.WriteFile(path, []byte("DATABASE_URL=old"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(dir, nil, nil)
	_, err := r.Run([]domain.PostCommandItem{
		{File: "config.env", Pattern: "DATABASE_URL=.*", Replacement: "DATABASE_URL=new"},
	}, Vars{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "DATABASE_URL=new" {
		t.Fatalf("expected substituted content, got %q err %v", got, err)
	}
}
