// Package neon implements the Backend interface against the Neon
// branching API (https://api-docs.neon.tech), where a "branch" is a
// Neon branch and readiness is immediate once the API call returns.
package neon

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

const defaultBaseURL = "https://console.neon.tech/api/v2"

// Backend is the Neon implementation of backend.Backend.
type Backend struct {
	httpClient *http.Client
	apiKey     string
	projectID  string
	baseURL    string
}

// New returns a Backend configured from cfg.
func New(cfg config.NeonConfig) (*Backend, error) {
	if cfg.APIKey == "" || cfg.ProjectID == "" {
		return nil, pgerrors.ConfigMissing("backend.neon.api_key and backend.neon.project_id")
	}
	return &Backend{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		baseURL:    defaultBaseURL,
	}, nil
}

func (b *Backend) Kind() domain.BackendKind { return domain.BackendNeon }

func (b *Backend) request(ctx context.Context, method, path string, body, out interface{}) error {
	url := fmt.Sprintf("%s/%s", b.baseURL, path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pgerrors.RemoteApiError("neon", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return pgerrors.RemoteApiError("neon", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return pgerrors.RemoteApiError("neon", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pgerrors.RemoteApiError("neon", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return pgerrors.RemoteApiError("neon", err)
	}
	return nil
}

type neonBranch struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

type createBranchRequest struct {
	Branch struct {
		Name     string `json:"name"`
		ParentID string `json:"parent_id,omitempty"`
	} `json:"branch"`
}

type createBranchResponse struct {
	Branch neonBranch `json:"branch"`
}

type listBranchesResponse struct {
	Branches []neonBranch `json:"branches"`
}

type neonEndpoint struct {
	Host     string `json:"host"`
	BranchID string `json:"branch_id"`
}

type listEndpointsResponse struct {
	Endpoints []neonEndpoint `json:"endpoints"`
}

// Create creates a new Neon branch, optionally from a parent branch.
func (b *Backend) Create(ctx context.Context, opts backend.CreateOptions) (*domain.Branch, error) {
	req := createBranchRequest{}
	req.Branch.Name = opts.Name
	if opts.Parent != nil {
		req.Branch.ParentID = opts.Parent.Handle
	}

	var resp createBranchResponse
	if err := b.request(ctx, http.MethodPost, fmt.Sprintf("projects/%s/branches", b.projectID), req, &resp); err != nil {
		return nil, err
	}

	branch := &domain.Branch{
		Project:      opts.Project.Key(),
		Name:         opts.Name,
		DatabaseName: opts.DatabaseName,
		Root:         opts.Parent == nil,
		Handle:       resp.Branch.ID,
		Status:       domain.StatusRunning,
	}
	if opts.Parent != nil {
		branch.Parent = opts.Parent.Name
	}
	return branch, nil
}

// Delete deletes the Neon branch.
func (b *Backend) Delete(ctx context.Context, br *domain.Branch) error {
	return b.request(ctx, http.MethodDelete, fmt.Sprintf("projects/%s/branches/%s", b.projectID, br.Handle), nil, nil)
}

// List enumerates all Neon branches for the configured project.
func (b *Backend) List(ctx context.Context, project domain.Project) ([]*domain.Branch, error) {
	var resp listBranchesResponse
	if err := b.request(ctx, http.MethodGet, fmt.Sprintf("projects/%s/branches", b.projectID), nil, &resp); err != nil {
		return nil, err
	}
	branches := make([]*domain.Branch, 0, len(resp.Branches))
	for _, nb := range resp.Branches {
		branches = append(branches, &domain.Branch{
			Project: project.Key(),
			Name:    nb.Name,
			Parent:  nb.ParentID,
			Handle:  nb.ID,
			Status:  domain.StatusRunning,
		})
	}
	return branches, nil
}

// Start is a no-op: Neon branches have no independent compute to start
// beyond the project's always-on endpoint.
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

// Connection resolves the branch's endpoint host and returns connection info.
func (b *Backend) Connection(ctx context.Context, br *domain.Branch) (domain.ConnectionInfo, error) {
	var resp listEndpointsResponse
	if err := b.request(ctx, http.MethodGet, fmt.Sprintf("projects/%s/endpoints", b.projectID), nil, &resp); err != nil {
		return domain.ConnectionInfo{}, err
	}
	for _, ep := range resp.Endpoints {
		if ep.BranchID == br.Handle {
			return domain.ConnectionInfo{Host: ep.Host, Port: 5432, Database: br.DatabaseName}, nil
		}
	}
	return domain.ConnectionInfo{}, pgerrors.BranchNotFound(br.Name)
}

// Health pings the Neon API by listing branches.
func (b *Backend) Health(ctx context.Context) error {
	_, err := b.List(ctx, domain.Project{})
	return err
}
