// Package lock implements the per-project exclusive/shared lock that
// serialises mutating operations against a project's state file.
package lock

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Mode selects how a lock is acquired.
type Mode int

const (
	// Shared allows any number of concurrent readers, blocking only
	// against an Exclusive holder. Read-only commands (list, status,
	// config-show) take this mode.
	Shared Mode = iota
	// Exclusive blocks all other lockers, shared or exclusive. Every
	// mutating lifecycle operation takes this mode.
	Exclusive
)

func (m Mode) flockFlag() int {
	if m == Shared {
		return unix.LOCK_SH
	}
	return unix.LOCK_EX
}

// Info is metadata written into the lock file for diagnostics. It is not
// used for correctness: the correctness guarantee comes from flock(2) on
// the open file descriptor, which the kernel releases automatically if
// the holding process dies or is killed. Info just lets `doctor` and
// `status` explain who is currently holding the lock.
type Info struct {
	PID       int       `yaml:"pid"`
	Owner     string    `yaml:"owner"`
	Acquired  time.Time `yaml:"acquired"`
	Operation string    `yaml:"operation"`
}

// FileLock guards a single state file path with an OS-level flock.
type FileLock struct {
	path string
	file *os.File
	mode Mode
}

// New returns a FileLock bound to path. The file is created on first
// Lock call if it does not already exist.
func New(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock blocks until the lock is acquired in the given mode. The caller
// must call Unlock to release it; an abrupt process exit releases it
// automatically because flock is tied to the open file descriptor.
func (l *FileLock) Lock(mode Mode, operation string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", l.path, err)
	}

	if err := unix.Flock(int(f.Fd()), mode.flockFlag()); err != nil {
		f.Close()
		return fmt.Errorf("flock %s: %w", l.path, err)
	}

	l.file = f
	l.mode = mode

	if mode == Exclusive {
		info := Info{
			PID:       os.Getpid(),
			Owner:     ownerName(),
			Acquired:  time.Now(),
			Operation: operation,
		}
		if err := writeInfo(f, info); err != nil {
			unix.Flock(int(f.Fd()), unix.LOCK_UN)
			f.Close()
			l.file = nil
			return fmt.Errorf("write lock info: %w", err)
		}
	}

	return nil
}

// TryLock attempts to acquire the lock without blocking. It returns a
// *BusyError if another process currently holds a conflicting lock.
func (l *FileLock) TryLock(mode Mode, operation string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", l.path, err)
	}

	flags := mode.flockFlag() | unix.LOCK_NB
	if err := unix.Flock(int(f.Fd()), flags); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			holder, _ := readInfo(l.path)
			return &BusyError{Path: l.path, Holder: holder}
		}
		return fmt.Errorf("flock %s: %w", l.path, err)
	}

	l.file = f
	l.mode = mode
	if mode == Exclusive {
		info := Info{PID: os.Getpid(), Owner: ownerName(), Acquired: time.Now(), Operation: operation}
		writeInfo(f, info)
	}
	return nil
}

// Unlock releases the lock and closes the underlying file descriptor.
// Safe to call on a FileLock that was never locked.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return fmt.Errorf("unlock: %w", unlockErr)
	}
	return closeErr
}

// BusyError is returned by TryLock when another process holds a
// conflicting lock.
type BusyError struct {
	Path   string
	Holder *Info
}

func (e *BusyError) Error() string {
	if e.Holder != nil && e.Holder.Operation != "" {
		return fmt.Sprintf("%s is locked by pid %d (%s)", e.Path, e.Holder.PID, e.Holder.Operation)
	}
	return fmt.Sprintf("%s is locked by another process", e.Path)
}

func ownerName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func writeInfo(f *os.File, info Info) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	body := fmt.Sprintf("pid: %d\nowner: %s\nacquired: %s\noperation: %s\n",
		info.PID, info.Owner, info.Acquired.Format(time.RFC3339), info.Operation)
	_, err := f.WriteString(body)
	return err
}

// readInfo best-effort parses the lock file content without taking any
// lock itself. It is used purely for diagnostics when TryLock fails.
func readInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	for _, line := range splitLines(string(data)) {
		n := indexByte(line, ':')
		if n < 0 {
			continue
		}
		key, val := line[:n], trimSpace(line[n+1:])
		switch key {
		case "pid":
			fmt.Sscanf(val, "%d", &info.PID)
		case "owner":
			info.Owner = val
		case "operation":
			info.Operation = val
		case "acquired":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				info.Acquired = t
			}
		}
	}
	return &info, nil
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

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}
