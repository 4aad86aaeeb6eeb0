package web

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dagwatch/dagwatch/core"
)

const runHistoryLimit = 100

func (s *Server) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.RecentRuns(r.Context(), runHistoryLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-runs", runs)
}

func (s *Server) getRunHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("run_id"))
	if err != nil {
		s.writeError(w, core.BadRequestf("invalid run id: %s", r.PathValue("run_id")))
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-run", run)
}

// triggerJobHandler creates a manual run. The config must exist but needs
// no schedule; the scanner measures deadlines from triggered_at.
func (s *Server) triggerJobHandler(w http.ResponseWriter, r *http.Request) {
	app, job := r.PathValue("app"), r.PathValue("job")
	if _, err := s.store.GetConfig(r.Context(), app, job); err != nil {
		s.writeError(w, err)
		return
	}
	run, err := s.store.CreateRun(r.Context(), app, job, s.clock.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-run", run)
}

func eventKind(eventType string) core.EventKind {
	switch eventType {
	case "started":
		return core.EventStart
	case "completed":
		return core.EventComplete
	default:
		return core.EventFailed
	}
}

func (s *Server) stageUpdateByContextHandler(w http.ResponseWriter, r *http.Request) {
	var req stageUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	run, err := s.ingestor.ApplyByContext(r.Context(),
		r.PathValue("app"), r.PathValue("job"), req.StageName, eventKind(req.EventType), req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-run", run)
}

func (s *Server) stageUpdateByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("run_id"))
	if err != nil {
		s.writeError(w, core.BadRequestf("invalid run id: %s", r.PathValue("run_id")))
		return
	}
	var req stageUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	run, err := s.ingestor.ApplyByRunID(r.Context(), id, req.StageName, eventKind(req.EventType), req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-run", run)
}
