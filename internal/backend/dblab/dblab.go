// Package dblab implements the Backend interface against the Database
// Lab Engine API (https://postgres.ai/docs/database-lab), where a
// "branch" is a thin clone created from the latest snapshot.
package dblab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/keylty/pgbranch/internal/backend"
	"github.com/keylty/pgbranch/internal/config"
	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/pgerrors"
)

// Backend is the Database Lab Engine implementation of backend.Backend.
type Backend struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New returns a Backend configured from cfg.
func New(cfg config.DBLabConfig) (*Backend, error) {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return nil, pgerrors.ConfigMissing("backend.dblab.base_url and backend.dblab.token")
	}
	return &Backend{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}, nil
}

func (b *Backend) Kind() domain.BackendKind { return domain.BackendDBLab }

func (b *Backend) request(ctx context.Context, method, path string, body, out interface{}) error {
	url := b.baseURL + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pgerrors.RemoteApiError("dblab", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return pgerrors.RemoteApiError("dblab", err)
	}
	req.Header.Set("Verification-Token", b.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return pgerrors.RemoteApiError("dblab", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pgerrors.RemoteApiError("dblab", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return pgerrors.RemoteApiError("dblab", err)
	}
	return nil
}

// normalizeCloneName maps a Git branch name to DBLab's clone-name
// alphabet: lowercase alphanumerics and hyphens, every other character
// replaced by a hyphen.
func normalizeCloneName(branchName string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(branchName) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteRune(c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

type dblabDatabase struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"dbname"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type dblabClone struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	SnapshotID string        `json:"snapshotID"`
	DB         dblabDatabase `json:"db"`
}

type createCloneRequest struct {
	CloneName  string `json:"cloneName"`
	SnapshotID string `json:"snapshotID,omitempty"`
}

type createCloneResponse struct {
	Clone dblabClone `json:"clone"`
}

type listClonesResponse struct {
	Clones []dblabClone `json:"clones"`
}

type dblabSnapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type listSnapshotsResponse struct {
	Snapshots []dblabSnapshot `json:"snapshots"`
}

func (b *Backend) latestSnapshot(ctx context.Context) (string, error) {
	var resp listSnapshotsResponse
	if err := b.request(ctx, http.MethodGet, "/api/snapshots", nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Snapshots) == 0 {
		return "", fmt.Errorf("no snapshots available")
	}
	sort.Slice(resp.Snapshots, func(i, j int) bool {
		return resp.Snapshots[i].CreatedAt.After(resp.Snapshots[j].CreatedAt)
	})
	return resp.Snapshots[0].ID, nil
}

// Create creates a new thin clone. DBLab clones always branch from the
// engine's latest snapshot; there is no notion of cloning from a sibling
// branch's current state, so opts.Parent is accepted but not used.
func (b *Backend) Create(ctx context.Context, opts backend.CreateOptions) (*domain.Branch, error) {
	snapshotID, err := b.latestSnapshot(ctx)
	if err != nil {
		return nil, pgerrors.RemoteApiError("dblab", err)
	}

	req := createCloneRequest{CloneName: normalizeCloneName(opts.Name), SnapshotID: snapshotID}
	var resp createCloneResponse
	if err := b.request(ctx, http.MethodPost, "/api/clone", req, &resp); err != nil {
		return nil, err
	}

	branch := &domain.Branch{
		Project:      opts.Project.Key(),
		Name:         opts.Name,
		DatabaseName: resp.Clone.DB.Database,
		Root:         opts.Parent == nil,
		Handle:       resp.Clone.ID,
		Host:         resp.Clone.DB.Host,
		Port:         resp.Clone.DB.Port,
		Status:       domain.StatusRunning,
	}
	if opts.Parent != nil {
		branch.Parent = opts.Parent.Name
	}
	return branch, nil
}

// Delete destroys the clone.
func (b *Backend) Delete(ctx context.Context, br *domain.Branch) error {
	return b.request(ctx, http.MethodDelete, "/api/clone/"+br.Handle, nil, nil)
}

// List enumerates all clones on the engine.
func (b *Backend) List(ctx context.Context, project domain.Project) ([]*domain.Branch, error) {
	var resp listClonesResponse
	if err := b.request(ctx, http.MethodGet, "/api/clones", nil, &resp); err != nil {
		return nil, err
	}
	branches := make([]*domain.Branch, 0, len(resp.Clones))
	for _, c := range resp.Clones {
		branches = append(branches, &domain.Branch{
			Project:      project.Key(),
			Name:         c.Name,
			DatabaseName: c.DB.Database,
			Handle:       c.ID,
			Host:         c.DB.Host,
			Port:         c.DB.Port,
			Status:       domain.StatusRunning,
		})
	}
	return branches, nil
}

// Start makes no DBLab API call: a clone has no separate stop/start
// lifecycle, so Start only marks the branch Running.
func (b *Backend) Start(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	br.Status = domain.StatusRunning
	return br, nil
}

// Stop is a no-op: DBLab clones have no independent stop operation.
func (b *Backend) Stop(ctx context.Context, br *domain.Branch) (*domain.Branch, error) {
	br.Status = domain.StatusStopped
	return br, nil
}

// Reset resets the clone to the engine's latest snapshot.
func (b *Backend) Reset(ctx context.Context, br *domain.Branch, parent *domain.Branch) (*domain.Branch, error) {
	if err := b.request(ctx, http.MethodPost, "/api/clone/"+br.Handle+"/reset", nil, nil); err != nil {
		return br, err
	}
	br.Status = domain.StatusRunning
	return br, nil
}

// Connection returns the clone's connection info.
func (b *Backend) Connection(ctx context.Context, br *domain.Branch) (domain.ConnectionInfo, error) {
	var resp createCloneResponse
	if err := b.request(ctx, http.MethodGet, "/api/clone/"+br.Handle, nil, &resp); err != nil {
		return domain.ConnectionInfo{}, err
	}
	return domain.ConnectionInfo{
		Host:     resp.Clone.DB.Host,
		Port:     resp.Clone.DB.Port,
		Database: resp.Clone.DB.Database,
		User:     resp.Clone.DB.Username,
		Password: resp.Clone.DB.Password,
	}, nil
}

// Health lists snapshots to confirm the engine is reachable.
func (b *Backend) Health(ctx context.Context) error {
	_, err := b.latestSnapshot(ctx)
	return err
}
