package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/container"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/storagedriver"
)

type fakeRunner struct {
	fail map[string]bool
}

func (f *fakeRunner) Run(workDir, name string, args ...string) (string, error) {
	key := name
	for _, a := range args {
		key += " " + a
	}
	if f.fail[key] {
		return "", &fakeErr{key}
	}
	if name == "docker" && len(args) > 0 && args[0] == "run" {
		return "container123", nil
	}
	if name == "docker" && len(args) > 0 && args[0] == "inspect" {
		return "running", nil
	}
	return "", nil
}

type fakeErr struct{ key string }

func (e *fakeErr) Error() string { return "command failed: " + e.key }

func newTestBackend(t *testing.T, dataRoot string) *Backend {
	r := &fakeRunner{fail: map[string]bool{}}
	cfg := config.LocalBackendConfig{Image: "postgres:16", DataRoot: dataRoot, DatabaseUser: "postgres", DatabasePassword: "postgres"}
	storage := storagedriver.NewWithRunner(dataRoot, r)
	containers := container.NewWithRunner(r)
	containers.SetProbe(func(host string, port int) error { return nil })
	b := New(cfg, 50000, storagedriver.StrategyFullCopy, storage, containers)
	b.SetReadinessConfig(container.ReadinessConfig{Initial: time.Millisecond, Factor: 1, Max: time.Millisecond, Timeout: 50 * time.Millisecond})
	return b
}

func TestCreateRootInitializesEmptyDataDir(t *testing.T) {
	root := t.TempDir()
	b := newTestBackend(t, root)

	br, err := b.Create(context.Background(), backend.CreateOptions{
		Project:      domain.Project{RepoRoot: root},
		Name:         "main",
		DatabaseName: "myapp",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !br.Root {
		t.Error("expected root branch")
	}
	if _, err := os.Stat(filepath.Join(root, "main")); err != nil {
		t.Errorf("expected data dir created: %v", err)
	}
}

func TestCreateChildClonesFromParent(t *testing.T) {
	root := t.TempDir()
	b := newTestBackend(t, root)
	ctx := context.Background()

	parentDir := filepath.Join(root, "main")
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parentDir, "seed.txt"), []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}
	parent := &domain.Branch{Name: "main", Root: true, Status: domain.StatusStopped}

	br, err := b.Create(ctx, backend.CreateOptions{
		Project:      domain.Project{RepoRoot: root},
		Name:         "feature",
		DatabaseName: "myapp_feature",
		Parent:       parent,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if br.Parent != "main" {
		t.Errorf("expected parent main, got %q", br.Parent)
	}
	got, err := os.ReadFile(filepath.Join(root, "feature", "seed.txt"))
	if err != nil || string(got) != "seed" {
		t.Fatalf("expected cloned seed file, got %q err %v", got, err)
	}
}

func TestDeleteRemovesContainerAndData(t *testing.T) {
	root := t.TempDir()
	b := newTestBackend(t, root)

	dataDir := filepath.Join(root, "feature")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}

	br := &domain.Branch{Name: "feature", Handle: "container123"}
	if err := b.Delete(context.Background(), br); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(dataDir); !os.IsNotExist(err) {
		t.Errorf("expected data dir removed, stat err = %v", err)
	}
}

func TestResetRequiresParent(t *testing.T) {
	root := t.TempDir()
	b := newTestBackend(t, root)

	br := &domain.Branch{Name: "main", Root: true}
	if _, err := b.Reset(context.Background(), br, nil); err == nil {
		t.Fatal("expected error resetting the root branch")
	}
}

func TestConnectionUsesConfiguredCredentials(t *testing.T) {
	root := t.TempDir()
	b := newTestBackend(t, root)

	br := &domain.Branch{Host: "127.0.0.1", Port: 55432, DatabaseName: "myapp"}
	conn, err := b.Connection(context.Background(), br)
	if err != nil {
		t.Fatalf("Connection: %v", err)
	}
	if conn.User != "postgres" || conn.Database != "myapp" {
		t.Errorf("unexpected connection info %+v", conn)
	}
}
