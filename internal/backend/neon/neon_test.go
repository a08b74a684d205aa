package neon

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

	b, err := New(config.NeonConfig{APIKey: "test-key", ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.baseURL = srv.URL
	return b
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(config.NeonConfig{}); err == nil {
		t.Fatal("expected error with missing api key and project id")
	}
}

func TestCreateSendsAuthorizationHeader(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		resp := createBranchResponse{}
		resp.Branch.ID = "br-123"
		resp.Branch.Name = "feature"
		json.NewEncoder(w).Encode(resp)
	})

	br, err := b.Create(context.Background(), backend.CreateOptions{Name: "feature", DatabaseName: "myapp_feature"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if br.Handle != "br-123" {
		t.Errorf("got handle %q, want br-123", br.Handle)
	}
}

func TestRequestTranslatesErrorStatus(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid api key"))
	})

	_, err := b.List(context.Background(), domain.Project{})
	if err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestListParsesBranches(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		resp := listBranchesResponse{Branches: []neonBranch{{ID: "br-1", Name: "main"}, {ID: "br-2", Name: "feature", ParentID: "br-1"}}}
		json.NewEncoder(w).Encode(resp)
	})

	branches, err := b.List(context.Background(), domain.Project{RepoRoot: "/repo"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("got %d branches, want 2", len(branches))
	}
	if branches[1].Parent != "br-1" {
		t.Errorf("expected parent br-1, got %q", branches[1].Parent)
	}
}
