package state

import (
	"context"
	"fmt"
	"time"
)

// BuildStatus is the terminal status of one recorded build.
type BuildStatus string

const (
	BuildStatusOK     BuildStatus = "ok"
	BuildStatusFailed BuildStatus = "failed"
	BuildStatusCached BuildStatus = "cached"
)

// BuildRecord is one row of the build history.
type BuildRecord struct {
	ID         int64
	Project    string
	ImageID    string
	Status     BuildStatus
	FailedStep string // empty unless Status == failed
	StartedAt  time.Time
	Duration   time.Duration
}

type BuildLog struct {
	db *DB
}

// NewBuildLog creates the store and ensures the table exists.
func NewBuildLog(ctx context.Context, database *DB) (*BuildLog, error) {
	if database == nil {
		return nil, nil
	}
	s := &BuildLog{db: database}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var defaultBuildLog *BuildLog

func DefaultBuildLog(ctx context.Context) (*BuildLog, error) {
	if defaultBuildLog == nil {
		db, err := OpenDefault(ctx)
		if err != nil {
			return nil, err
		}
		defaultBuildLog, err = NewBuildLog(ctx, db)
		if err != nil {
			return nil, err
		}
	}

	return defaultBuildLog, nil
}

func (s *BuildLog) ensureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS build_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project     TEXT NOT NULL,
	image_id    TEXT NOT NULL,
	status      TEXT NOT NULL,
	failed_step TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
`
	_, err := s.db.Raw().ExecContext(ctx, createTable)
	if err != nil {
		return fmt.Errorf("buildlog: ensure schema: %w", err)
	}
	return nil
}

// Insert appends one build record.
func (s *BuildLog) Insert(ctx context.Context, rec BuildRecord) error {
	const stmt = `
INSERT INTO build_log (project, image_id, status, failed_step, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?);
`
	_, err := s.db.Raw().ExecContext(ctx, stmt,
		rec.Project,
		rec.ImageID,
		string(rec.Status),
		rec.FailedStep,
		rec.StartedAt.Unix(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("buildlog: insert: %w", err)
	}
	return nil
}

// ListRecent returns the newest records first, at most limit rows.
func (s *BuildLog) ListRecent(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
SELECT id, project, image_id, status, failed_step, started_at, duration_ms
FROM build_log
ORDER BY started_at DESC, id DESC
LIMIT ?;
`
	rows, err := s.db.Raw().QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("buildlog: list: %w", err)
	}
	defer rows.Close()

	var out []BuildRecord
	for rows.Next() {
		var rec BuildRecord
		var status string
		var startedAtUnix, durationMs int64
		if err := rows.Scan(&rec.ID, &rec.Project, &rec.ImageID, &status, &rec.FailedStep, &startedAtUnix, &durationMs); err != nil {
			return nil, fmt.Errorf("buildlog: scan: %w", err)
		}
		rec.Status = BuildStatus(status)
		rec.StartedAt = time.Unix(startedAtUnix, 0).UTC()
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneBefore deletes records started before cutoff. Returns rows removed.
func (s *BuildLog) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const stmt = `
DELETE FROM build_log
WHERE started_at < ?;
`
	res, err := s.db.Raw().ExecContext(ctx, stmt, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("buildlog: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
