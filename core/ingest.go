package core

import (
	"context"

	"github.com/google/uuid"
)

// EventKind is the kind of stage report an external pipeline pushes in.
type EventKind string

const (
	EventStart    EventKind = "started"
	EventComplete EventKind = "completed"
	EventFailed   EventKind = "failed"
)

// Ingestor applies incoming stage events to job runs, creating the run
// when a scheduled job's first event arrives before the scanner did.
type Ingestor struct {
	configs  ConfigStore
	runs     RunStore
	alerts   AlertSender
	settings *SettingsCache
	logger   Logger
	clock    Clock
}

func NewIngestor(
	configs ConfigStore,
	runs RunStore,
	alerts AlertSender,
	settings *SettingsCache,
	logger Logger,
	clock Clock,
) *Ingestor {
	return &Ingestor{
		configs:  configs,
		runs:     runs,
		alerts:   alerts,
		settings: settings,
		logger:   logger,
		clock:    clock,
	}
}

// ApplyByRunID applies a stage event to the run addressed by ID.
func (in *Ingestor) ApplyByRunID(
	ctx context.Context, runID uuid.UUID, stageName string, kind EventKind, message string,
) (*JobRun, error) {
	run, err := in.applyByRunID(ctx, runID, stageName, kind, message)
	if err != nil {
		in.reportError(ctx, "", "", runID.String(), stageName, err)
		return nil, err
	}
	return run, nil
}

// ApplyByContext applies a stage event addressed by (app, job). The job
// must be scheduled: the run the event belongs to is selected by the
// current cron window, and created when no run exists for it yet.
func (in *Ingestor) ApplyByContext(
	ctx context.Context, appName, jobName, stageName string, kind EventKind, message string,
) (*JobRun, error) {
	run, err := in.applyByContext(ctx, appName, jobName, stageName, kind, message)
	if err != nil {
		in.reportError(ctx, appName, jobName, "", stageName, err)
		return nil, err
	}
	return run, nil
}

func (in *Ingestor) applyByRunID(
	ctx context.Context, runID uuid.UUID, stageName string, kind EventKind, message string,
) (*JobRun, error) {
	run, err := in.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	cfg, err := in.configs.GetConfig(ctx, run.AppName, run.JobName)
	if err != nil {
		return nil, err
	}
	return in.apply(ctx, cfg, run, stageName, kind, message)
}

func (in *Ingestor) applyByContext(
	ctx context.Context, appName, jobName, stageName string, kind EventKind, message string,
) (*JobRun, error) {
	cfg, err := in.configs.GetConfig(ctx, appName, jobName)
	if err != nil {
		return nil, err
	}
	if cfg.Schedule == nil || cfg.ZoneID == nil {
		return nil, BadRequestf("zone or schedule should not be empty for %s-%s", appName, jobName)
	}

	utcNow := in.clock.Now().UTC()
	zonedNow, err := ToZone(utcNow, *cfg.ZoneID)
	if err != nil {
		return nil, err
	}
	jobStart, err := JobStart(cfg, zonedNow)
	if err != nil {
		return nil, err
	}

	run, err := in.runs.LatestRunSince(ctx, appName, jobName, jobStart.UTC())
	if IsNotFound(err) {
		run, err = in.runs.CreateRun(ctx, appName, jobName, utcNow)
	}
	if err != nil {
		return nil, err
	}
	return in.apply(ctx, cfg, run, stageName, kind, message)
}

func (in *Ingestor) apply(
	ctx context.Context, cfg *JobConfig, run *JobRun, stageName string, kind EventKind, message string,
) (*JobRun, error) {
	// An event on a paused job re-enables it: pipelines reporting in
	// means the job is live again.
	if !cfg.Enabled {
		cfg.Enabled = true
		saved, err := in.configs.SaveConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cfg = saved
	}

	if err := validateStageEvent(cfg, stageName, kind); err != nil {
		return nil, err
	}

	now := in.clock.Now().UTC()
	stage := JobRunStage{Name: stageName}
	switch kind {
	case EventStart:
		stage.StartStatus = statusPtr(StageOccurred)
		stage.StartDateTime = timePtr(now)
	case EventComplete:
		stage.CompleteStatus = statusPtr(StageOccurred)
		stage.CompleteDateTime = timePtr(now)
	case EventFailed:
		stage.CompleteStatus = statusPtr(StageFailed)
		stage.CompleteDateTime = timePtr(now)
	default:
		return nil, BadRequestf("unknown event type %q", kind)
	}

	// Stage entries are append-only; later matching uses first-occurrence
	// semantics, so an entry never overwrites an earlier report.
	run.Stages = append(run.Stages, stage)
	run.Status = FoldStatus(cfg, run)
	run.UpdatedAt = now

	saved, err := in.runs.SaveRun(ctx, run)
	if err != nil {
		return nil, err
	}

	if kind == EventFailed {
		alert := Alert{
			Type:    AlertFailed,
			App:     cfg.AppName,
			Job:     cfg.JobName,
			Stage:   stageName,
			RunID:   saved.ID.String(),
			Message: message,
		}
		if err := in.alerts.Send(ctx, alert, cfg.ChannelIDs); err != nil {
			in.logger.Errorf("failed to send failed alert for %s-%s stage %s: %v",
				cfg.AppName, cfg.JobName, stageName, err)
			in.reportError(ctx, cfg.AppName, cfg.JobName, saved.ID.String(), stageName, err)
		}
	}
	return saved, nil
}

// reportError pushes a best-effort Error alert to the operator error
// channels. Failures here are logged and never surfaced.
func (in *Ingestor) reportError(ctx context.Context, appName, jobName, runID, stageName string, cause error) {
	errorChannels := in.settings.Snapshot().ErrorChannels
	if errorChannels == "" {
		return
	}
	alert := Alert{
		Type:    AlertError,
		App:     appName,
		Job:     jobName,
		Stage:   stageName,
		RunID:   runID,
		Message: cause.Error(),
	}
	if err := in.alerts.Send(ctx, alert, errorChannels); err != nil {
		in.logger.Errorf("failed to send error alert for %s-%s stage %s: %v", appName, jobName, stageName, err)
	}
}

func validateStageEvent(cfg *JobConfig, stageName string, kind EventKind) error {
	// Failed reports are accepted as-is: a pipeline may fail in a stage
	// the config never tracked a deadline for.
	if kind == EventFailed {
		return nil
	}
	stage := cfg.Stage(stageName)
	if stage == nil {
		return BadRequestf("invalid stage name provided %s", stageName)
	}
	switch kind {
	case EventStart:
		if stage.Start == nil {
			return BadRequestf("start not configured for the stage %s", stageName)
		}
	case EventComplete:
		if stage.Complete == nil {
			return BadRequestf("complete not configured for the stage %s", stageName)
		}
	}
	return nil
}
