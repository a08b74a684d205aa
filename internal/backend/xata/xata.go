// Package xata implements the Backend interface against the Xata
// branching API (https://xata.io/docs/rest-api/branches), where a
// "branch" is a database branch within a workspace.
package xata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/pgerrors"
)

const defaultBaseURL = "https://api.xata.tech"

// Backend is the Xata implementation of backend.Backend.
type Backend struct {
	httpClient *http.Client
	apiKey     string
	workspace  string
	database   string
	baseURL    string
}

// New returns a Backend configured from cfg.
func New(cfg config.XataConfig) (*Backend, error) {
	if cfg.APIKey == "" || cfg.Workspace == "" || cfg.Database == "" {
		return nil, pgerrors.ConfigMissing("backend.xata.api_key, backend.xata.workspace, backend.xata.database")
	}
	return &Backend{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     cfg.APIKey,
		workspace:  cfg.Workspace,
		database:   cfg.Database,
		baseURL:    defaultBaseURL,
	}, nil
}

func (b *Backend) Kind() domain.BackendKind { return domain.BackendXata }

func (b *Backend) branchesURL() string {
	return fmt.Sprintf("%s/workspaces/%s/dbs/%s/branches", b.baseURL, b.workspace, b.database)
}

func (b *Backend) request(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pgerrors.RemoteApiError("xata", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return pgerrors.RemoteApiError("xata", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return pgerrors.RemoteApiError("xata", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pgerrors.RemoteApiError("xata", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return pgerrors.RemoteApiError("xata", err)
	}
	return nil
}

type xataBranch struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentID,omitempty"`
}

type listBranchesResponse struct {
	Branches []xataBranch `json:"branches"`
}

type createBranchRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentID,omitempty"`
}

type branchCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
}

// Create creates a new Xata branch.
func (b *Backend) Create(ctx context.Context, opts backend.CreateOptions) (*domain.Branch, error) {
	req := createBranchRequest{Name: opts.Name}
	if opts.Parent != nil {
		req.ParentID = opts.Parent.Handle
	}

	var resp xataBranch
	if err := b.request(ctx, http.MethodPost, b.branchesURL(), req, &resp); err != nil {
		return nil, err
	}

	branch := &domain.Branch{
		Project:      opts.Project.Key(),
		Name:         opts.Name,
		DatabaseName: opts.DatabaseName,
		Root:         opts.Parent == nil,
		Handle:       resp.ID,
		Status:       domain.StatusRunning,
	}
	if opts.Parent != nil {
		branch.Parent = opts.Parent.Name
	}
	return branch, nil
}

// Delete deletes the Xata branch.
func (b *Backend) Delete(ctx context.Context, br *domain.Branch) error {
	return b.request(ctx, http.MethodDelete, b.branchesURL()+"/"+br.Handle, nil, nil)
}

// List enumerates all branches of the configured database.
func (b *Backend) List(ctx context.Context, project domain.Project) ([]*domain.Branch, error) {
	var resp listBranchesResponse
	if err := b.request(ctx, http.MethodGet, b.branchesURL(), nil, &resp); err != nil {
		return nil, err
	}
	branches := make([]*domain.Branch, 0, len(resp.Branches))
	for _, xb := range resp.Branches {
		branches = append(branches, &domain.Branch{
			Project: project.Key(),
			Name:    xb.Name,
			Parent:  xb.ParentID,
			Handle:  xb.ID,
			Status:  domain.StatusRunning,
		})
	}
	return branches, nil
}

// Start is a no-op: Xata branches have no independent compute to start.
func (b *Backend) Start(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	br.Status = domain.StatusRunning
	return br, nil
}

// Stop is a no-op for the same reason Start is.
func (b *Backend) Stop(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	br.Status = domain.StatusStopped
	return br, nil
}

// Reset deletes and re-creates the branch from its parent's current state.
func (b *Backend) Reset(ctx context.Context, br *domain.Branch, parent *domain.Branch) (*domain.Branch, error) {
	if parent == nil {
		return br, fmt.Errorf("reset requires a parent branch, %q is the project root", br.Name)
	}
	if err := b.Delete(ctx, br); err != nil {
		return br, err
	}
	return b.Create(ctx, backend.CreateOptions{Name: br.Name, DatabaseName: br.DatabaseName, Parent: parent})
}

// Connection fetches the branch's database credentials.
func (b *Backend) Connection(ctx context.Context, br *domain.Branch) (domain.ConnectionInfo, error) {
	var creds branchCredentials
	if err := b.request(ctx, http.MethodGet, b.branchesURL()+"/"+br.Handle+"/credentials", nil, &creds); err != nil {
		return domain.ConnectionInfo{}, err
	}
	database := creds.Database
	if database == "" {
		database = b.database
	}
	return domain.ConnectionInfo{
		Host:     creds.Host,
		Port:     creds.Port,
		Database: database,
		User:     creds.Username,
		Password: creds.Password,
	}, nil
}

// Health lists branches to confirm the Xata API is reachable.
func (b *Backend) Health(ctx context.Context) error {
	_, err := b.List(ctx, domain.Project{})
	return err
}
