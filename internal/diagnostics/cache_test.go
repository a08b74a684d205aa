package diagnostics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/keylty/pgbranch/internal/domain"
)

func TestReconciliationCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doctor-cache.sqlite3")
	cache, err := OpenReconciliationCache(path)
	if err != nil {
		t.Fatalf("OpenReconciliationCache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if findings, err := cache.Last(ctx, "proj"); err != nil || findings != nil {
		t.Fatalf("Last on empty cache = %v, %v; want nil, nil", findings, err)
	}

	report := &Report{Findings: []Finding{{Branch: "feature", Severity: SeverityWarning, Message: "stuck"}}}
	if err := cache.Record(ctx, "proj", report); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := cache.Last(ctx, "proj")
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(got) != 1 || got[0].Branch != "feature" {
		t.Fatalf("Last = %+v, want one finding for feature", got)
	}
}

func TestDoctorWithCacheReportsOnlyNewFindings(t *testing.T) {
	project := domain.Project{RepoRoot: "/repo"}
	stuck := &domain.Branch{Name: "feature", Status: domain.StatusCreating}
	path := seedState(t, project, stuck)

	cachePath := filepath.Join(t.TempDir(), "doctor-cache.sqlite3")
	cache, err := OpenReconciliationCache(cachePath)
	if err != nil {
		t.Fatalf("OpenReconciliationCache: %v", err)
	}
	defer cache.Close()

	d := New(path, project, &fakeBackend{}).WithCache(cache)

	first, err := d.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(first.New) != 1 {
		t.Fatalf("first run New = %+v, want one finding (nothing recorded yet)", first.New)
	}

	second, err := d.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second.New) != 0 {
		t.Fatalf("second run New = %+v, want none (already recorded by the first run)", second.New)
	}
}
