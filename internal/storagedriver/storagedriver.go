// Package storagedriver detects and exercises the Copy-on-Write strategy
// used to clone a branch's data directory: APFS, ZFS, filesystem
// reflink, or a portable full-copy fallback.
package storagedriver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/keylty/pgbranch/internal/pgerrors"
)

// Strategy identifies a Copy-on-Write cloning mechanism.
type Strategy string

const (
	StrategyAPFS     Strategy = "apfs"
	StrategyZFS      Strategy = "zfs"
	StrategyReflink  Strategy = "reflink"
	StrategyFullCopy Strategy = "fullcopy"
)

// ZFSDatasetEnvVar seeds the ZFS root dataset outside of Config, per
// spec.md's note that storage-driver env vars are handled directly by
// this package rather than flowing through the layered config merge.
const ZFSDatasetEnvVar = "PGBRANCH_ZFS_DATASET"

// Detection reports whether a strategy is usable on this host.
type Detection struct {
	Strategy  Strategy
	Available bool
	Detail    string
	Dataset   string // populated for ZFS when a usable dataset is found
}

// Driver probes and executes CoW operations against a project's data
// root using a CommandRunner for subprocess-based probes (`zfs`, `cp
// --reflink`).
type Driver struct {
	dataRoot string
	runner   gitadapter.CommandRunner
}

// New returns a Driver rooted at dataRoot using the real ExecRunner.
func New(dataRoot string) *Driver {
	return &Driver{dataRoot: dataRoot, runner: gitadapter.NewExecRunner()}
}

// NewWithRunner returns a Driver using a custom CommandRunner, for tests.
func NewWithRunner(dataRoot string, runner gitadapter.CommandRunner) *Driver {
	return &Driver{dataRoot: dataRoot, runner: runner}
}

// Doctor probes every strategy in preference order and reports which
// one Detect would select.
func (d *Driver) Doctor() []Detection {
	return []Detection{
		d.detectAPFS(),
		d.detectZFS(),
		d.detectReflink(),
		{Strategy: StrategyFullCopy, Available: true, Detail: "portable full copy fallback"},
	}
}

// Detect returns the best available strategy for this host, in the
// order APFS > ZFS > Reflink > FullCopy.
func (d *Driver) Detect() Detection {
	for _, det := range d.Doctor() {
		if det.Available {
			return det
		}
	}
	return Detection{Strategy: StrategyFullCopy, Available: true}
}

func (d *Driver) detectZFS() Detection {
	if dataset := os.Getenv(ZFSDatasetEnvVar); dataset != "" {
		if _, err := d.runner.Run(d.dataRoot, "zfs", "list", "-H", "-o", "name", dataset); err == nil {
			return Detection{Strategy: StrategyZFS, Available: true, Detail: "seeded via " + ZFSDatasetEnvVar, Dataset: dataset}
		}
	}

	out, err := d.runner.Run(d.dataRoot, "zfs", "list", "-H", "-o", "name,mountpoint")
	if err != nil {
		return Detection{Strategy: StrategyZFS, Available: false, Detail: "zfs command unavailable or no pools: " + err.Error()}
	}
	dataset := findAncestorDataset(out, d.dataRoot)
	if dataset == "" {
		return Detection{Strategy: StrategyZFS, Available: false, Detail: "no ZFS dataset mounted above " + d.dataRoot}
	}
	return Detection{Strategy: StrategyZFS, Available: true, Detail: "dataset " + dataset + " covers data root", Dataset: dataset}
}

func findAncestorDataset(zfsListOutput, dataRoot string) string {
	best := ""
	for _, line := range splitLines(zfsListOutput) {
		fields := splitFields(line)
		if len(fields) != 2 {
			continue
		}
		name, mountpoint := fields[0], fields[1]
		if mountpoint == "-" || mountpoint == "none" {
			continue
		}
		if isAncestorDir(mountpoint, dataRoot) && len(mountpoint) > len(best) {
			best = name
		}
	}
	return best
}

func isAncestorDir(ancestor, path string) bool {
	rel, err := filepath.Rel(ancestor, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

func (d *Driver) detectAPFS() Detection {
	if runtime.GOOS != "darwin" {
		return Detection{Strategy: StrategyAPFS, Available: false, Detail: "APFS clone only applies on macOS"}
	}
	ok, detail := d.probeClone("-c")
	return Detection{Strategy: StrategyAPFS, Available: ok, Detail: detail}
}

func (d *Driver) detectReflink() Detection {
	if runtime.GOOS != "linux" {
		return Detection{Strategy: StrategyReflink, Available: false, Detail: "reflink probe only runs on Linux"}
	}
	ok, detail := d.probeClone("--reflink=always")
	return Detection{Strategy: StrategyReflink, Available: ok, Detail: detail}
}

// probeClone attempts a `cp` with the given clone flag on a throwaway
// probe file inside the data root, reporting success/failure without
// leaving artifacts behind.
func (d *Driver) probeClone(cpFlag string) (bool, string) {
	probeDir := filepath.Join(d.dataRoot, ".pgbranch-probe-"+uuid.NewString())
	if err := os.MkdirAll(probeDir, 0o755); err != nil {
		return false, fmt.Sprintf("create probe dir: %v", err)
	}
	defer os.RemoveAll(probeDir)

	src := filepath.Join(probeDir, "src.bin")
	dst := filepath.Join(probeDir, "dst.bin")
	if err := os.WriteFile(src, []byte("pgbranch"), 0o644); err != nil {
		return false, fmt.Sprintf("write probe file: %v", err)
	}

	if _, err := d.runner.Run(probeDir, "cp", cpFlag, src, dst); err != nil {
		return false, fmt.Sprintf("clone probe failed: %v", err)
	}
	return true, "clone probe succeeded"
}

// Clone copies src into dst using the given strategy. For FullCopy this
// is a recursive copy preserving permissions; for the CoW strategies it
// shells out to the strategy-appropriate clone command.
func (d *Driver) Clone(strategy Strategy, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return pgerrors.StorageUnavailable(string(strategy)).WithContext("reason", fmt.Sprintf("source %s does not exist", src)).WithCause(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return pgerrors.IoError("create parent directory", err)
	}

	switch strategy {
	case StrategyAPFS:
		if _, err := d.runner.Run(d.dataRoot, "cp", "-Rc", src, dst); err != nil {
			return pgerrors.StorageUnavailable(string(strategy)).WithCause(err)
		}
		return nil
	case StrategyReflink:
		if _, err := d.runner.Run(d.dataRoot, "cp", "-a", "--reflink=always", src, dst); err != nil {
			return pgerrors.StorageUnavailable(string(strategy)).WithCause(err)
		}
		return nil
	case StrategyZFS:
		return d.cloneZFS(src, dst)
	default:
		return copyTree(src, dst)
	}
}

func (d *Driver) cloneZFS(src, dst string) error {
	snapshot := src + "@pgbranch-" + uuid.NewString()
	if _, err := d.runner.Run(d.dataRoot, "zfs", "snapshot", snapshot); err != nil {
		return pgerrors.StorageUnavailable("zfs").WithCause(err)
	}
	if _, err := d.runner.Run(d.dataRoot, "zfs", "clone", snapshot, dst); err != nil {
		return pgerrors.StorageUnavailable("zfs").WithCause(err)
	}
	return nil
}

// Destroy removes dst entirely. For ZFS-backed clones this destroys the
// dataset; otherwise it is a recursive directory removal.
func (d *Driver) Destroy(strategy Strategy, dst string) error {
	if strategy == StrategyZFS {
		if _, err := d.runner.Run(d.dataRoot, "zfs", "destroy", "-r", dst); err != nil {
			return pgerrors.StorageUnavailable("zfs").WithCause(err)
		}
		return nil
	}
	if err := os.RemoveAll(dst); err != nil {
		return pgerrors.IoError("remove data directory", err)
	}
	return nil
}

// Reset destroys dst and re-clones it from src, yielding data
// byte-identical to a fresh Clone(src, dst) at the same source state.
func (d *Driver) Reset(strategy Strategy, src, dst string) error {
	if err := d.Destroy(strategy, dst); err != nil {
		return err
	}
	return d.Clone(strategy, src, dst)
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return pgerrors.IoError("stat source", err)
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}

	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return pgerrors.IoError("create directory", err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return pgerrors.IoError("read directory", err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if err := copyTree(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return pgerrors.IoError("open source file", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return pgerrors.IoError("create destination file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return pgerrors.IoError("copy file contents", err)
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func splitFields(s string) []string {
	var fields []string
	var cur []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			if len(cur) > 0 {
				fields = append(fields, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		fields = append(fields, string(cur))
	}
	return fields
}
