package core

import (
	"math"
	"sort"
	"time"
)

// StageMap indexes a run's stage entries by name. Entries are append-only,
// so the first occurrence wins: later duplicates never shadow the entry
// that recorded the original status.
func StageMap(run *JobRun) map[string]JobRunStage {
	m := make(map[string]JobRunStage, len(run.Stages))
	for _, st := range run.Stages {
		if _, ok := m[st.Name]; !ok {
			m[st.Name] = st
		}
	}
	return m
}

// DetectTimeouts derives which configured stage deadlines have been missed
// as of zonedNow, given the run currently associated with the window. It
// returns only the stage entries updated in this pass; entries already
// carrying a status (Occurred, Failed or a previous Missed) are never
// rewritten. The function is pure and idempotent against its own output:
// applying the returned stages to the run and calling again yields nothing.
func DetectTimeouts(cfg *JobConfig, run *JobRun, zonedNow, jobStart time.Time) []JobRunStage {
	occurring := StageMap(run)

	stages := make([]JobStageConfig, len(cfg.Stages))
	copy(stages, cfg.Stages)
	// Earliest deadline first; stages without any offset sort last and
	// ties keep config order.
	sort.SliceStable(stages, func(i, j int) bool {
		return earliestOffset(&stages[i]) < earliestOffset(&stages[j])
	})

	var updated []JobRunStage
	for i := range stages {
		stage := occurring[stages[i].Name]
		stage.Name = stages[i].Name

		changed := false
		if stages[i].Start != nil && stage.StartStatus == nil {
			deadline := jobStart.Add(time.Duration(*stages[i].Start) * time.Second)
			if zonedNow.After(deadline) {
				stage.StartStatus = statusPtr(StageMissed)
				stage.StartDateTime = timePtr(zonedNow.UTC())
				changed = true
			}
		}
		if stages[i].Complete != nil && stage.CompleteStatus == nil {
			deadline := jobStart.Add(time.Duration(*stages[i].Complete) * time.Second)
			if zonedNow.After(deadline) {
				stage.CompleteStatus = statusPtr(StageMissed)
				stage.CompleteDateTime = timePtr(zonedNow.UTC())
				changed = true
			}
		}
		if changed {
			updated = append(updated, stage)
		}
	}
	return updated
}

// MergeStages combines a run's existing stage list with newly produced
// entries. Order of the existing list is preserved; new entries supersede
// prior entries with the same name and otherwise append.
func MergeStages(existing []JobRunStage, produced []JobRunStage) []JobRunStage {
	merged := make([]JobRunStage, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, st := range merged {
		if _, ok := index[st.Name]; !ok {
			index[st.Name] = i
		}
	}
	for _, st := range produced {
		if i, ok := index[st.Name]; ok {
			merged[i] = st
		} else {
			index[st.Name] = len(merged)
			merged = append(merged, st)
		}
	}
	return merged
}

func earliestOffset(s *JobStageConfig) int64 {
	if m := minOffset(s.Start, s.Complete); m != nil {
		return *m
	}
	return math.MaxInt64
}

func statusPtr(s StageStatus) *StageStatus { return &s }
func timePtr(t time.Time) *time.Time       { return &t }
