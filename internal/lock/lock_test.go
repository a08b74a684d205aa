package lock

import (
	"path/filepath"
	"testing"
)

func TestExclusiveBlocksExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	first := New(path)
	if err := first.Lock(Exclusive, "create"); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	defer first.Unlock()

	second := New(path)
	if err := second.TryLock(Exclusive, "delete"); err == nil {
		t.Fatal("expected second exclusive TryLock to fail while first holds the lock")
	} else if _, ok := err.(*BusyError); !ok {
		t.Fatalf("expected *BusyError, got %T: %v", err, err)
	}
}

func TestSharedAllowsMultipleReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	first := New(path)
	if err := first.Lock(Shared, "list"); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	defer first.Unlock()

	second := New(path)
	if err := second.TryLock(Shared, "status"); err != nil {
		t.Fatalf("expected concurrent shared locks to succeed, got %v", err)
	}
	defer second.Unlock()
}

func TestSharedBlocksExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	reader := New(path)
	if err := reader.Lock(Shared, "list"); err != nil {
		t.Fatalf("reader Lock: %v", err)
	}
	defer reader.Unlock()

	writer := New(path)
	if err := writer.TryLock(Exclusive, "create"); err == nil {
		t.Fatal("expected exclusive TryLock to fail while a shared lock is held")
	}
}

func TestUnlockReleasesForNextAcquirer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	first := New(path)
	if err := first.Lock(Exclusive, "create"); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	second := New(path)
	if err := second.TryLock(Exclusive, "delete"); err != nil {
		t.Fatalf("expected TryLock to succeed after release, got %v", err)
	}
	defer second.Unlock()
}

func TestBusyErrorReportsHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	holder := New(path)
	if err := holder.Lock(Exclusive, "reset"); err != nil {
		t.Fatalf("holder Lock: %v", err)
	}
	defer holder.Unlock()

	waiter := New(path)
	err := waiter.TryLock(Exclusive, "destroy")
	busy, ok := err.(*BusyError)
	if !ok {
		t.Fatalf("expected *BusyError, got %T", err)
	}
	if busy.Holder == nil || busy.Holder.Operation != "reset" {
		t.Errorf("expected holder operation %q, got %+v", "reset", busy.Holder)
	}
}

func TestUnlockWithoutLockIsNoOp(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "state.lock"))
	if err := l.Unlock(); err != nil {
		t.Errorf("expected no-op Unlock to succeed, got %v", err)
	}
}
