package rotatelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hook.log")
	w, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("got %q", data)
	}
}

func TestWriteRotatesPastMaxBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hook.log")
	w, err := Open(path, 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("overflow")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rotated, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}
	if !strings.Contains(string(rotated), "0123456789") {
		t.Errorf("rotated file missing original content: %q", rotated)
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile current: %v", err)
	}
	if string(current) != "overflow" {
		t.Errorf("got %q, want overflow", current)
	}
}
