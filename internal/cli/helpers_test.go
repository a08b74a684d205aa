package cli

import (
	"errors"
	"testing"

	"github.com/keylty/pgbranch/internal/pgerrors"
)

func TestExitCodeForBranchError(t *testing.T) {
	err := pgerrors.BranchNotFound("feature/login")
	if got := exitCodeFor(err); got != err.ExitCode() {
		t.Errorf("exitCodeFor = %d, want %d", got, err.ExitCode())
	}
}

func TestExitCodeForPlainErrorDefaultsToOne(t *testing.T) {
	if got := exitCodeFor(errors.New("boom")); got != 1 {
		t.Errorf("exitCodeFor = %d, want 1", got)
	}
}

func TestConfirmSkipsPromptWhenNonInteractive(t *testing.T) {
	orig := nonInteractive
	nonInteractive = true
	defer func() { nonInteractive = orig }()

	if confirm("delete everything?") {
		t.Error("confirm should return false under --non-interactive without reading stdin")
	}
}
