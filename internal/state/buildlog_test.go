package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestBuildLog(t *testing.T) *BuildLog {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log, err := NewBuildLog(ctx, db)
	if err != nil {
		t.Fatalf("NewBuildLog returned error: %v", err)
	}
	return log
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deep", "state.db")
	db, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("parent directory missing: %v", err)
	}
}

func TestNewBuildLogNilDB(t *testing.T) {
	t.Parallel()

	log, err := NewBuildLog(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewBuildLog returned error: %v", err)
	}
	if log != nil {
		t.Fatal("nil database must yield a nil store")
	}
}

func TestBuildLogInsertAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := newTestBuildLog(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	records := []BuildRecord{
		{Project: "mlapp", ImageID: "sha256:aaa", Status: BuildStatusOK, StartedAt: base, Duration: 90 * time.Second},
		{Project: "mlapp", ImageID: "", Status: BuildStatusFailed, FailedStep: "read dependency manifest", StartedAt: base.Add(time.Hour), Duration: time.Second},
		{Project: "mlapp", ImageID: "sha256:bbb", Status: BuildStatusCached, StartedAt: base.Add(2 * time.Hour), Duration: 200 * time.Millisecond},
	}
	for _, rec := range records {
		if err := log.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	got, err := log.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}

	// Newest first.
	if got[0].Status != BuildStatusCached || got[2].Status != BuildStatusOK {
		t.Fatalf("unexpected order: %v, %v, %v", got[0].Status, got[1].Status, got[2].Status)
	}
	if got[1].FailedStep != "read dependency manifest" {
		t.Errorf("FailedStep = %q", got[1].FailedStep)
	}
	if !got[2].StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", got[2].StartedAt, base)
	}
	if got[2].Duration != 90*time.Second {
		t.Errorf("Duration = %v", got[2].Duration)
	}
}

func TestBuildLogListLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := newTestBuildLog(t)

	start := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := BuildRecord{
			Project:   "mlapp",
			ImageID:   "sha256:x",
			Status:    BuildStatusOK,
			StartedAt: start.Add(time.Duration(i) * time.Minute),
		}
		if err := log.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	got, err := log.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}

func TestBuildLogPruneBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := newTestBuildLog(t)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	for _, ts := range []time.Time{old, old.Add(time.Minute), recent} {
		rec := BuildRecord{Project: "mlapp", ImageID: "sha256:x", Status: BuildStatusOK, StartedAt: ts}
		if err := log.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	n, err := log.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("pruned %d rows, want 2", n)
	}

	got, err := log.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after prune, want 1", len(got))
	}
}
