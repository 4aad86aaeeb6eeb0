package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dagwatch/dagwatch/core"
)

const runColumns = `id, app_name, job_name, triggered_at, status, stages, created_at, updated_at`

func scanRun(row configRow) (*core.JobRun, error) {
	var run core.JobRun
	err := row.Scan(
		&run.ID, &run.AppName, &run.JobName, &run.TriggeredAt,
		&run.Status, &run.Stages, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun returns one run by ID or a not-found error.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*core.JobRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM job_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if noRows(err) {
		return nil, core.NotFoundf("job run not found for id: %s", id)
	}
	if err != nil {
		return nil, core.DatabaseError("get job run", err)
	}
	return run, nil
}

// LatestRunSince returns the newest run for (app, job) triggered at or after
// since, or a not-found error when the window has no run yet.
func (s *Store) LatestRunSince(ctx context.Context, appName, jobName string, since time.Time) (*core.JobRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM job_runs
		 WHERE app_name = $1 AND job_name = $2 AND triggered_at >= $3
		 ORDER BY triggered_at DESC
		 LIMIT 1`,
		appName, jobName, since)
	run, err := scanRun(row)
	if noRows(err) {
		return nil, core.NotFoundf("no job run since %s for: %s-%s", since.Format(time.RFC3339), appName, jobName)
	}
	if err != nil {
		return nil, core.DatabaseError("get latest job run", err)
	}
	return run, nil
}

// PendingRuns returns every run updated at or after the boundary.
func (s *Store) PendingRuns(ctx context.Context, updatedSince time.Time) ([]*core.JobRun, error) {
	return s.listRuns(ctx,
		`SELECT `+runColumns+` FROM job_runs WHERE updated_at >= $1`, updatedSince)
}

// RecentRuns returns the newest runs for the run history view.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*core.JobRun, error) {
	return s.listRuns(ctx,
		`SELECT `+runColumns+` FROM job_runs ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *Store) listRuns(ctx context.Context, query string, args ...any) ([]*core.JobRun, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.DatabaseError("list job runs", err)
	}
	defer rows.Close()

	var runs []*core.JobRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, core.DatabaseError("scan job run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, core.DatabaseError("list job runs", err)
	}
	return runs, nil
}

// CreateRun inserts a fresh in-progress run with no stages.
func (s *Store) CreateRun(ctx context.Context, appName, jobName string, triggeredAt time.Time) (*core.JobRun, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO job_runs (app_name, job_name, triggered_at, status, stages)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+runColumns,
		appName, jobName, triggeredAt, core.RunInProgress, []core.JobRunStage{})
	run, err := scanRun(row)
	if err != nil {
		return nil, core.DatabaseError("insert job run", err)
	}
	return run, nil
}

// SaveRun writes the whole run record back. Last writer wins on the row.
func (s *Store) SaveRun(ctx context.Context, run *core.JobRun) (*core.JobRun, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE job_runs
		 SET status = $2, stages = $3, triggered_at = $4, updated_at = $5
		 WHERE id = $1
		 RETURNING `+runColumns,
		run.ID, run.Status, run.Stages, run.TriggeredAt, run.UpdatedAt)
	saved, err := scanRun(row)
	if noRows(err) {
		return nil, core.NotFoundf("job run not found for id: %s", run.ID)
	}
	if err != nil {
		return nil, core.DatabaseError("save job run", err)
	}
	return saved, nil
}
