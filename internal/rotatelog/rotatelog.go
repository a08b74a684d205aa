// Package rotatelog implements a minimal size-based rotating file
// writer for the Event Dispatcher's per-project hook log, which a Git
// hook runs once per checkout and cannot assume anyone is around to
// truncate.
package rotatelog

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer appends to path, renaming it to path+".1" and starting a new
// file once it exceeds maxBytes. It keeps at most one rotated file.
type Writer struct {
	path     string
	maxBytes int64
	file     *os.File
	size     int64
}

// Open returns a Writer appending to path, creating parent directories
// as needed. maxBytes <= 0 disables rotation.
func Open(path string, maxBytes int64) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	return &Writer{path: path, maxBytes: maxBytes, file: f, size: info.Size()}, nil
}

// Write appends p, rotating first if it would push the file past
// maxBytes.
func (w *Writer) Write(p []byte) (int, error) {
	if w.maxBytes > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *Writer) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	rotated := w.path + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(w.path, rotated); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reopen log file: %w", err)
	}
	w.file = f
	w.size = 0
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.file.Close()
}
