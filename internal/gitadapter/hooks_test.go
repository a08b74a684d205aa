package gitadapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupRepoHooksDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git", "hooks"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestInstallHooksCreatesStubs(t *testing.T) {
	root := setupRepoHooksDir(t)

	if err := InstallHooks(root, "pgbranch"); err != nil {
		t.Fatalf("InstallHooks: %v", err)
	}
	if !HooksInstalled(root) {
		t.Fatal("expected hooks to be reported as installed")
	}

	data, err := os.ReadFile(hookPath(root, "post-checkout"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "pgbranch hook post-checkout") {
		t.Errorf("expected hook invocation in stub, got %q", data)
	}
}

func TestInstallHooksIsIdempotent(t *testing.T) {
	root := setupRepoHooksDir(t)

	if err := InstallHooks(root, "pgbranch"); err != nil {
		t.Fatalf("first InstallHooks: %v", err)
	}
	first, _ := os.ReadFile(hookPath(root, "post-checkout"))

	if err := InstallHooks(root, "pgbranch"); err != nil {
		t.Fatalf("second InstallHooks: %v", err)
	}
	second, _ := os.ReadFile(hookPath(root, "post-checkout"))

	if string(first) != string(second) {
		t.Errorf("expected idempotent install, got different content:\n%s\nvs\n%s", first, second)
	}
}

func TestInstallThenUninstallRoundTrip(t *testing.T) {
	root := setupRepoHooksDir(t)

	if err := InstallHooks(root, "pgbranch"); err != nil {
		t.Fatalf("InstallHooks: %v", err)
	}
	if err := UninstallHooks(root); err != nil {
		t.Fatalf("UninstallHooks: %v", err)
	}

	for _, name := range ManagedHooks {
		if _, err := os.Stat(hookPath(root, name)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed, stat err = %v", name, err)
		}
	}
}

func TestUninstallPreservesPreexistingStub(t *testing.T) {
	root := setupRepoHooksDir(t)
	preexisting := "#!/bin/sh\necho custom-hook\n"
	if err := os.WriteFile(hookPath(root, "post-checkout"), []byte(preexisting), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := InstallHooks(root, "pgbranch"); err != nil {
		t.Fatalf("InstallHooks: %v", err)
	}
	if err := UninstallHooks(root); err != nil {
		t.Fatalf("UninstallHooks: %v", err)
	}

	data, err := os.ReadFile(hookPath(root, "post-checkout"))
	if err != nil {
		t.Fatalf("expected preexisting stub to survive uninstall: %v", err)
	}
	if string(data) != preexisting {
		t.Errorf("got %q, want byte-identical %q", data, preexisting)
	}
}
