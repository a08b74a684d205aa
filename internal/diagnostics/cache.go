package diagnostics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// ReconciliationCache persists a short history of Doctor runs keyed by
// project, so `doctor --json` can report which findings are new since
// the last pass instead of repeating the same warning every run.
type ReconciliationCache struct {
	db *sql.DB
}

// OpenReconciliationCache opens (creating if needed) a SQLite database
// at path and ensures its single table exists.
func OpenReconciliationCache(path string) (*ReconciliationCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open reconciliation cache: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		CREATE TABLE IF NOT EXISTS reconciliation_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_key TEXT NOT NULL,
			ran_at TIMESTAMP NOT NULL,
			healthy INTEGER NOT NULL,
			findings_json TEXT NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init reconciliation cache schema: %w", err)
	}
	return &ReconciliationCache{db: db}, nil
}

// Close closes the underlying database handle.
func (c *ReconciliationCache) Close() error {
	return c.db.Close()
}

// Record stores report's findings as the most recent reconciliation
// pass for projectKey.
func (c *ReconciliationCache) Record(ctx context.Context, projectKey string, report *Report) error {
	data, err := json.Marshal(report.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	healthy := 0
	if report.Healthy {
		healthy = 1
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO reconciliation_runs (project_key, ran_at, healthy, findings_json) VALUES (?, ?, ?, ?)`,
		projectKey, time.Now(), healthy, string(data),
	)
	return err
}

// Last returns the findings recorded by the previous reconciliation
// pass for projectKey. It returns a nil slice, not an error, when no
// run has ever been recorded.
func (c *ReconciliationCache) Last(ctx context.Context, projectKey string) ([]Finding, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT findings_json FROM reconciliation_runs WHERE project_key = ? ORDER BY id DESC LIMIT 1`,
		projectKey,
	)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read last reconciliation run: %w", err)
	}
	var findings []Finding
	if err := json.Unmarshal([]byte(data), &findings); err != nil {
		return nil, fmt.Errorf("unmarshal cached findings: %w", err)
	}
	return findings, nil
}

// newFindings returns the entries of current not present in previous,
// compared by branch and message.
func newFindings(current, previous []Finding) []Finding {
	seen := make(map[string]bool, len(previous))
	for _, f := range previous {
		seen[f.Branch+"\x00"+f.Message] = true
	}
	var out []Finding
	for _, f := range current {
		if !seen[f.Branch+"\x00"+f.Message] {
			out = append(out, f)
		}
	}
	return out
}
