package xata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := New(config.XataConfig{APIKey: "key", Workspace: "ws-1", Database: "myapp"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.baseURL = srv.URL
	return b
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(config.XataConfig{}); err == nil {
		t.Fatal("expected error with missing credentials")
	}
}

func TestBranchesURLIncludesWorkspaceAndDatabase(t *testing.T) {
	b := &Backend{baseURL: "https://api.xata.tech", workspace: "ws-1", database: "myapp"}
	got := b.branchesURL()
	want := "https://api.xata.tech/workspaces/ws-1/dbs/myapp/branches"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCreateReturnsBranchHandle(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(xataBranch{ID: "br-1", Name: "feature"})
	})

	br, err := b.Create(context.Background(), backend.CreateOptions{Name: "feature", DatabaseName: "myapp"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if br.Handle != "br-1" {
		t.Errorf("got handle %q, want br-1", br.Handle)
	}
}

func TestConnectionFallsBackToConfiguredDatabase(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(branchCredentials{Username: "u", Password: "p", Host: "db.xata.tech", Port: 5432})
	})

	conn, err := b.Connection(context.Background(), &domain.Branch{Handle: "br-1"})
	if err != nil {
		t.Fatalf("Connection: %v", err)
	}
	if conn.Database != "myapp" {
		t.Errorf("expected database to fall back to configured %q, got %q", "myapp", conn.Database)
	}
}
