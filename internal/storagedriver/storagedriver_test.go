package storagedriver

import (
	"os"
	"path/filepath"
	"testing"
)

type fakeRunner struct {
	fail    map[string]bool
	failAll bool
}

func (f *fakeRunner) Run(workDir, name string, args ...string) (string, error) {
	key := name
	for _, a := range args {
		key += " " + a
	}
	if f.failAll || f.fail[key] {
		return "", &fakeErr{key}
	}
	return "", nil
}

type fakeErr struct{ key string }

func (e *fakeErr) Error() string { return "command failed: " + e.key }

func TestDetectFallsBackToFullCopy(t *testing.T) {
	root := t.TempDir()
	d := NewWithRunner(root, &fakeRunner{failAll: true})

	det := d.Detect()
	if det.Strategy != StrategyFullCopy {
		t.Fatalf("unexpected strategy %q", det.Strategy)
	}
}

func TestDetectZFSSeededByEnvVar(t *testing.T) {
	root := t.TempDir()
	t.Setenv(ZFSDatasetEnvVar, "tank/pgbranch")

	d := NewWithRunner(root, &fakeRunner{})
	det := d.Detect()
	if det.Strategy != StrategyZFS || det.Dataset != "tank/pgbranch" {
		t.Errorf("expected seeded ZFS dataset, got %+v", det)
	}
}

func TestCloneAndResetFullCopyRoundTrip(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "main")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "data.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewWithRunner(root, &fakeRunner{})
	dst := filepath.Join(root, "feature")

	if err := d.Clone(StrategyFullCopy, src, dst); err != nil {
		t.Fatalf("Clone: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dst, "data.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("expected cloned file content, got %q err %v", got, err)
	}

	if err := os.WriteFile(filepath.Join(dst, "data.txt"), []byte("mutated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(StrategyFullCopy, src, dst); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, err = os.ReadFile(filepath.Join(dst, "data.txt"))
	if err != nil || string(got) != "hello" {
		t.Errorf("expected reset to restore original content, got %q err %v", got, err)
	}
}

func TestCloneMissingSourceFails(t *testing.T) {
	root := t.TempDir()
	d := NewWithRunner(root, &fakeRunner{})

	err := d.Clone(StrategyFullCopy, filepath.Join(root, "missing"), filepath.Join(root, "dst"))
	if err == nil {
		t.Fatal("expected error cloning from a missing source")
	}
}

func TestDestroyRemovesDirectory(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "branch")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}

	d := NewWithRunner(root, &fakeRunner{})
	if err := d.Destroy(StrategyFullCopy, target); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("expected directory removed, stat err = %v", err)
	}
}
