package dblab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := New(config.DBLabConfig{BaseURL: srv.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(config.DBLabConfig{}); err == nil {
		t.Fatal("expected error with missing base_url and token")
	}
}

func TestCreateUsesLatestSnapshot(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/snapshots":
			json.NewEncoder(w).Encode(listSnapshotsResponse{Snapshots: []dblabSnapshot{{ID: "snap-1"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/clone":
			if r.Header.Get("Verification-Token") != "tok" {
				t.Errorf("missing verification token")
			}
			resp := createCloneResponse{}
			resp.Clone.ID = "clone-1"
			resp.Clone.DB = dblabDatabase{Host: "dblab.internal", Port: 6000, Database: "clone_1"}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	br, err := b.Create(context.Background(), backend.CreateOptions{Name: "feature", DatabaseName: "myapp_feature"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if br.Handle != "clone-1" {
		t.Errorf("got handle %q, want clone-1", br.Handle)
	}
	if br.Host != "dblab.internal" || br.Port != 6000 {
		t.Errorf("unexpected connection fields: %+v", br)
	}
}

func TestNormalizeCloneName(t *testing.T) {
	cases := map[string]string{
		"feature/login":  "feature-login",
		"Feature_ABC-123": "feature-abc-123",
		"main":            "main",
	}
	for in, want := range cases {
		if got := normalizeCloneName(in); got != want {
			t.Errorf("normalizeCloneName(%q) = %q, want %q", in, got, want)
		}
	}
}
