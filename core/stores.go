package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConfigStore is the persistence surface the engine needs for job configs.
// Implementations return a KindNotFound AppError when the addressed config
// does not exist.
type ConfigStore interface {
	GetConfig(ctx context.Context, appName, jobName string) (*JobConfig, error)
	ListEnabledConfigs(ctx context.Context) ([]*JobConfig, error)
	SaveConfig(ctx context.Context, cfg *JobConfig) (*JobConfig, error)
}

// RunStore is the persistence surface for job runs. Runs are exclusively
// owned by the store; callers read-modify-write whole records.
type RunStore interface {
	GetRun(ctx context.Context, id uuid.UUID) (*JobRun, error)
	// LatestRunSince returns the most recent run for the job whose
	// triggered_at is at or after since, or a KindNotFound error.
	LatestRunSince(ctx context.Context, appName, jobName string, since time.Time) (*JobRun, error)
	// PendingRuns returns every run touched at or after the boundary.
	PendingRuns(ctx context.Context, updatedSince time.Time) ([]*JobRun, error)
	CreateRun(ctx context.Context, appName, jobName string, triggeredAt time.Time) (*JobRun, error)
	SaveRun(ctx context.Context, run *JobRun) (*JobRun, error)
}

// AlertSender fans one alert out to the named channels. The notify package
// provides the production implementation.
type AlertSender interface {
	Send(ctx context.Context, alert Alert, channelIDs string) error
}
