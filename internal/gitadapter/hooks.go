package gitadapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// hookBeginMarker and hookEndMarker delimit the block pgbranch appends to
// a hook script, so uninstall-hooks can remove exactly what install-hooks
// added and leave any pre-existing stub byte-identical to how it found it.
const (
	hookBeginMarker = "# >>> pgbranch hook >>>"
	hookEndMarker   = "# <<< pgbranch hook <<<"
)

// ManagedHooks lists the hook names pgbranch installs.
var ManagedHooks = []string{"post-checkout", "post-merge"}

func hookPath(repoRoot, name string) string {
	return filepath.Join(repoRoot, ".git", "hooks", name)
}

func hookBlock(binary, name string) string {
	var b strings.Builder
	b.WriteString(hookBeginMarker + "\n")
	fmt.Fprintf(&b, "%s hook %s \"$@\"\n", binary, name)
	b.WriteString(hookEndMarker + "\n")
	return b.String()
}

// InstallHooks writes or augments post-checkout and post-merge stubs in
// repoRoot/.git/hooks that invoke `binary hook <name> "$@"`. Installation
// is idempotent: running it twice leaves the file unchanged the second
// time. A pre-existing non-pgbranch hook is preserved and the pgbranch
// block is appended beneath it.
func InstallHooks(repoRoot, binary string) error {
	hooksDir := filepath.Join(repoRoot, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return fmt.Errorf("create hooks directory: %w", err)
	}

	for _, name := range ManagedHooks {
		path := hookPath(repoRoot, name)
		existing, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read hook %s: %w", name, err)
		}

		content := string(existing)
		if strings.Contains(content, hookBeginMarker) {
			continue // already installed
		}

		if content == "" {
			content = "#!/bin/sh\n"
		}
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += hookBlock(binary, name)

		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			return fmt.Errorf("write hook %s: %w", name, err)
		}
	}
	return nil
}

// UninstallHooks removes the pgbranch block from each managed hook. If
// the managed block was the entire file's content, the file is removed
// outright; otherwise the surrounding content (a pre-existing stub) is
// left byte-identical to how InstallHooks found it.
func UninstallHooks(repoRoot string) error {
	for _, name := range ManagedHooks {
		path := hookPath(repoRoot, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read hook %s: %w", name, err)
		}

		content := string(data)
		start := strings.Index(content, hookBeginMarker)
		if start < 0 {
			continue // not pgbranch-managed
		}
		end := strings.Index(content, hookEndMarker)
		if end < 0 {
			return fmt.Errorf("hook %s has a begin marker but no end marker", name)
		}
		end += len(hookEndMarker)
		if end < len(content) && content[end] == '\n' {
			end++
		}

		remainder := content[:start] + content[end:]
		if strings.TrimSpace(strings.TrimPrefix(remainder, "#!/bin/sh\n")) == "" {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove hook %s: %w", name, err)
			}
			continue
		}

		if err := os.WriteFile(path, []byte(remainder), 0o755); err != nil {
			return fmt.Errorf("write hook %s: %w", name, err)
		}
	}
	return nil
}

// HooksInstalled reports whether every managed hook currently carries
// the pgbranch block.
func HooksInstalled(repoRoot string) bool {
	for _, name := range ManagedHooks {
		data, err := os.ReadFile(hookPath(repoRoot, name))
		if err != nil || !strings.Contains(string(data), hookBeginMarker) {
			return false
		}
	}
	return true
}
