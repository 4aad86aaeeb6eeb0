package core

// FoldStatus rolls the stage states of a run up into a run-level status.
// Terminal statuses are sticky: a run already Complete or Failed keeps its
// status regardless of later stage entries.
func FoldStatus(cfg *JobConfig, run *JobRun) JobRunStatus {
	if run.Status != RunInProgress {
		return run.Status
	}

	occurring := StageMap(run)

	anyMissing := false
	for i := range cfg.Stages {
		stage, ok := occurring[cfg.Stages[i].Name]
		if !ok {
			anyMissing = true
			continue
		}
		if cfg.Stages[i].Start != nil && stage.StartStatus != nil && *stage.StartStatus != StageOccurred {
			return RunFailed
		}
		if cfg.Stages[i].Complete != nil && stage.CompleteStatus != nil && *stage.CompleteStatus != StageOccurred {
			return RunFailed
		}
	}

	if anyMissing {
		return RunInProgress
	}
	return RunComplete
}
