package core

import (
	"time"

	"github.com/adhocore/gronx"
)

// WindowBuffer absorbs scanner jitter at the tail of a job's expected
// window: a job is still considered in-window for two minutes past its
// latest stage deadline.
const WindowBuffer = 2 * time.Minute

// PreviousFire computes the last instant at or before from at which the
// cron expression matches, in from's location. The boundary is inclusive:
// asking at the exact fire instant returns that instant.
func PreviousFire(expr string, from time.Time) (time.Time, error) {
	if !gronx.New().IsValid(expr) {
		return time.Time{}, Internalf("invalid schedule found: %s", expr)
	}
	prev, err := gronx.PrevTickBefore(expr, from, true)
	if err != nil {
		return time.Time{}, Internalf("no prior fire time for schedule %s: %v", expr, err)
	}
	return prev, nil
}

// JobStart computes the start of the job's current window: the schedule's
// previous fire time relative to zonedNow.
func JobStart(cfg *JobConfig, zonedNow time.Time) (time.Time, error) {
	if cfg.Schedule == nil {
		return time.Time{}, Internalf("schedule is expected for %s-%s", cfg.AppName, cfg.JobName)
	}
	return PreviousFire(*cfg.Schedule, zonedNow)
}

// maxStageOffsetSeconds returns the largest stage offset, and false when no
// stage carries any offset. A config with offset-free stages has no finite
// window end: it stays in-window indefinitely after start.
func maxStageOffsetSeconds(cfg *JobConfig) (int64, bool) {
	var maxSecs int64
	bounded := len(cfg.Stages) > 0
	for i := range cfg.Stages {
		m := maxOffset(cfg.Stages[i].Start, cfg.Stages[i].Complete)
		if m == nil {
			bounded = false
			continue
		}
		if *m > maxSecs {
			maxSecs = *m
		}
	}
	return maxSecs, bounded
}

// JobComplete computes the window end (start plus the largest stage
// offset). The second return value is false when the window is unbounded.
func JobComplete(cfg *JobConfig, zonedNow time.Time) (time.Time, bool, error) {
	start, err := JobStart(cfg, zonedNow)
	if err != nil {
		return time.Time{}, false, err
	}
	maxSecs, bounded := maxStageOffsetSeconds(cfg)
	if !bounded {
		return time.Time{}, false, nil
	}
	return start.Add(time.Duration(maxSecs) * time.Second), true, nil
}

// InWindow reports whether zonedNow falls inside the job's expected window
// (job_start, job_complete + buffer). The lower bound is strict: at the
// exact fire instant the job is not yet in-window.
func InWindow(cfg *JobConfig, zonedNow time.Time) (bool, error) {
	start, err := JobStart(cfg, zonedNow)
	if err != nil {
		return false, err
	}
	if !zonedNow.After(start) {
		return false, nil
	}
	complete, bounded, err := JobComplete(cfg, zonedNow)
	if err != nil {
		return false, err
	}
	if !bounded {
		return true, nil
	}
	return zonedNow.Before(complete.Add(WindowBuffer)), nil
}
