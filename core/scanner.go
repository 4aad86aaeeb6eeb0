package core

import (
	"context"
	"time"
)

// Scanner is the periodic timeout-detection pass: it loads every enabled
// config plus the pending runs, decides which scheduled jobs are inside
// their expected window, matches stage deadlines, and notifies about
// anything missed. Per-config and per-run failures are logged and skipped;
// a tick only fails when the initial loads do.
type Scanner struct {
	configs  ConfigStore
	runs     RunStore
	alerts   AlertSender
	settings *SettingsCache
	logger   Logger
	clock    Clock
	grace    time.Duration
}

func NewScanner(
	configs ConfigStore,
	runs RunStore,
	alerts AlertSender,
	settings *SettingsCache,
	logger Logger,
	clock Clock,
	grace time.Duration,
) *Scanner {
	return &Scanner{
		configs:  configs,
		runs:     runs,
		alerts:   alerts,
		settings: settings,
		logger:   logger,
		clock:    clock,
		grace:    grace,
	}
}

// Scan performs a single pass.
func (s *Scanner) Scan(ctx context.Context) error {
	// Copy the fields we need out of the snapshot up front; the snapshot
	// may be replaced while this pass blocks on I/O.
	snap := s.settings.Snapshot()
	if snap.MaintenanceMode {
		s.logger.Debugf("maintenance mode enabled, skipping timeout scan")
		return nil
	}

	enabled, err := s.configs.ListEnabledConfigs(ctx)
	if err != nil {
		return err
	}
	if len(enabled) == 0 {
		return nil
	}

	configsByKey := make(map[string]*JobConfig, len(enabled))
	for _, cfg := range enabled {
		configsByKey[cfg.Key()] = cfg
	}

	utcNow := s.clock.Now().UTC()
	boundary := utcNow.Add(-time.Duration(snap.MaxStageDurationHours) * time.Hour)
	pending, err := s.runs.PendingRuns(ctx, boundary)
	if err != nil {
		return err
	}
	latestByJob := latestRunsByJob(pending)

	s.logger.Debugf("timeout scan at %s: %d enabled configs, %d pending runs",
		utcNow.Format(time.RFC3339), len(enabled), len(pending))

	s.scanScheduled(ctx, enabled, latestByJob, utcNow)
	s.scanManual(ctx, pending, configsByKey, utcNow)
	return nil
}

// latestRunsByJob keeps, per (app, job), the pending run with the greatest
// created_at.
func latestRunsByJob(pending []*JobRun) map[string]*JobRun {
	latest := make(map[string]*JobRun)
	for _, run := range pending {
		if cur, ok := latest[run.Key()]; !ok || run.CreatedAt.After(cur.CreatedAt) {
			latest[run.Key()] = run
		}
	}
	return latest
}

func (s *Scanner) scanScheduled(
	ctx context.Context, enabled []*JobConfig, latestByJob map[string]*JobRun, utcNow time.Time,
) {
	for _, cfg := range enabled {
		if cfg.Schedule == nil || cfg.ZoneID == nil {
			continue
		}
		zonedNow, err := ToZone(utcNow, *cfg.ZoneID)
		if err != nil {
			s.logger.Errorf("bad zone %q for %s-%s: %v", *cfg.ZoneID, cfg.AppName, cfg.JobName, err)
			continue
		}
		inWindow, err := InWindow(cfg, zonedNow)
		if err != nil {
			s.logger.Errorf("window calculation failed for %s-%s: %v", cfg.AppName, cfg.JobName, err)
			continue
		}
		if !inWindow {
			continue
		}
		jobStart, err := JobStart(cfg, zonedNow)
		if err != nil {
			s.logger.Errorf("failed to get job start time for %s-%s: %v", cfg.AppName, cfg.JobName, err)
			continue
		}

		// Reuse the latest run when it belongs to this window; the grace
		// margin covers a run inserted moments before the fire instant by
		// a racing event. Otherwise the window just opened silently and
		// the scanner owns creating the run.
		run := latestByJob[cfg.Key()]
		if run == nil || run.CreatedAt.Before(jobStart.UTC().Add(-s.grace)) {
			run, err = s.runs.CreateRun(ctx, cfg.AppName, cfg.JobName, utcNow)
			if err != nil {
				s.logger.Errorf("failed to insert run for %s-%s: %v", cfg.AppName, cfg.JobName, err)
				continue
			}
		}

		s.updateRunStages(ctx, cfg, run, zonedNow, jobStart, utcNow)
	}
}

func (s *Scanner) scanManual(
	ctx context.Context, pending []*JobRun, configsByKey map[string]*JobConfig, utcNow time.Time,
) {
	for _, run := range pending {
		if run.Status == RunComplete {
			continue
		}
		cfg, ok := configsByKey[run.Key()]
		if !ok || cfg.Schedule != nil {
			continue
		}
		// Manual jobs have no cron window; deadlines count from the
		// moment the run was triggered.
		s.updateRunStages(ctx, cfg, run, utcNow, run.TriggeredAt.UTC(), utcNow)
	}
}

func (s *Scanner) updateRunStages(
	ctx context.Context, cfg *JobConfig, run *JobRun, zonedNow, jobStart, utcNow time.Time,
) {
	produced := DetectTimeouts(cfg, run, zonedNow, jobStart)
	if len(produced) == 0 {
		return
	}

	s.logger.Warningf("timeout detected for %s-%s run %s: %d stage(s)",
		cfg.AppName, cfg.JobName, run.ID, len(produced))

	missed := newlyMissed(run, produced)

	run.Stages = MergeStages(run.Stages, produced)
	run.Status = RunFailed
	run.UpdatedAt = utcNow

	saved, err := s.runs.SaveRun(ctx, run)
	if err != nil {
		s.logger.Errorf("failed to save run %s for %s-%s: %v", run.ID, cfg.AppName, cfg.JobName, err)
		return
	}

	for _, stage := range missed {
		alert := Alert{
			Type:  AlertTimeout,
			App:   cfg.AppName,
			Job:   cfg.JobName,
			Stage: stage,
			RunID: saved.ID.String(),
		}
		if err := s.alerts.Send(ctx, alert, cfg.ChannelIDs); err != nil {
			s.logger.Errorf("failed to send timeout alert for %s-%s stage %s: %v",
				cfg.AppName, cfg.JobName, stage, err)
		}
	}
}

// newlyMissed lists the deadline sides this pass flipped to Missed, one
// alert per side. A produced entry may carry a Missed status from an
// earlier pass; only sides the prior run record had no status for count.
func newlyMissed(run *JobRun, produced []JobRunStage) []string {
	prev := StageMap(run)
	var missed []string
	for _, stage := range produced {
		before := prev[stage.Name]
		if stage.StartStatus != nil && *stage.StartStatus == StageMissed && before.StartStatus == nil {
			missed = append(missed, stage.Name+".start")
		}
		if stage.CompleteStatus != nil && *stage.CompleteStatus == StageMissed && before.CompleteStatus == nil {
			missed = append(missed, stage.Name+".complete")
		}
	}
	return missed
}
