package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobRunStatus is the run-level status derived from stage statuses.
type JobRunStatus string

const (
	RunInProgress JobRunStatus = "in_progress"
	RunComplete   JobRunStatus = "complete"
	RunFailed     JobRunStatus = "failed"
)

// StageStatus records how a single deadline (start or complete) resolved.
type StageStatus string

const (
	StageOccurred StageStatus = "occurred"
	StageFailed   StageStatus = "failed"
	StageMissed   StageStatus = "missed"
)

// ProviderType identifies the delivery mechanism behind a channel.
type ProviderType string

const (
	ProviderGchatWebhook ProviderType = "gchat_webhook"
	ProviderEmailSMTP    ProviderType = "email_smtp"
)

// ProviderTypes lists every provider a channel may be configured with.
func ProviderTypes() []ProviderType {
	return []ProviderType{ProviderGchatWebhook, ProviderEmailSMTP}
}

// JobStageConfig is one named checkpoint within a job. Offsets are seconds
// relative to the job start; at least one of Start/Complete must be set.
type JobStageConfig struct {
	Name     string `json:"name"`
	Start    *int64 `json:"start,omitempty"`
	Complete *int64 `json:"complete,omitempty"`
}

// JobConfig describes a watched job, identified by (AppName, JobName).
// Schedule and ZoneID are both set for scheduled jobs and both unset for
// manually triggered ones.
type JobConfig struct {
	AppName    string           `json:"app_name"`
	JobName    string           `json:"job_name"`
	Schedule   *string          `json:"schedule,omitempty"`
	ZoneID     *string          `json:"zone_id,omitempty"`
	Enabled    bool             `json:"enabled"`
	Stages     []JobStageConfig `json:"stages"`
	ChannelIDs string           `json:"channel_ids"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Key returns the map key used to group runs and configs by job.
func (c *JobConfig) Key() string {
	return c.AppName + "-" + c.JobName
}

// Stage returns the configured stage with the given name, or nil.
func (c *JobConfig) Stage(name string) *JobStageConfig {
	for i := range c.Stages {
		if c.Stages[i].Name == name {
			return &c.Stages[i]
		}
	}
	return nil
}

// JobRunStage is one stage entry on a run. Entries are append-only: an
// incoming event carries exactly one side (start or complete), and the
// scanner may later add a merged entry for missed deadlines.
type JobRunStage struct {
	Name             string       `json:"name"`
	StartStatus      *StageStatus `json:"start_status,omitempty"`
	StartDateTime    *time.Time   `json:"start_date_time,omitempty"`
	CompleteStatus   *StageStatus `json:"complete_status,omitempty"`
	CompleteDateTime *time.Time   `json:"complete_date_time,omitempty"`
}

// JobRun is one attempted execution of a job.
type JobRun struct {
	ID          uuid.UUID     `json:"id"`
	AppName     string        `json:"app_name"`
	JobName     string        `json:"job_name"`
	TriggeredAt time.Time     `json:"triggered_at"`
	Status      JobRunStatus  `json:"status"`
	Stages      []JobRunStage `json:"stages"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Key returns the same grouping key as JobConfig.Key.
func (r *JobRun) Key() string {
	return r.AppName + "-" + r.JobName
}

// Channel is a named notification destination backed by a provider plugin.
// Configuration is provider-specific JSON, schema-gated by the plugin.
type Channel struct {
	Name          string          `json:"name"`
	ProviderType  ProviderType    `json:"provider_type"`
	Configuration json.RawMessage `json:"configuration"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Settings is the singleton row of mutable operator settings.
type Settings struct {
	SuccessRetentionDays  int    `json:"success_retention_days"`
	FailureRetentionDays  int    `json:"failure_retention_days"`
	MaintenanceMode       bool   `json:"maintenance_mode"`
	DefaultChannels       string `json:"default_channels"`
	ErrorChannels         string `json:"error_channels"`
	MaxStageDurationHours int    `json:"max_stage_duration_hours"`
}

// AlertType selects the message template a plugin renders.
type AlertType string

const (
	AlertError   AlertType = "error"
	AlertTimeout AlertType = "timeout"
	AlertFailed  AlertType = "failed"
)

// Alert is one notification to be fanned out across channels.
type Alert struct {
	Type    AlertType
	App     string
	Job     string
	Stage   string
	RunID   string // empty when no run is associated
	Message string
}
