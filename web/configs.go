package web

import (
	"net/http"

	"github.com/dagwatch/dagwatch/core"
)

func (s *Server) listApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListAppNames(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "applications", names)
}

func (s *Server) listConfigsHandler(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.ListConfigs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-configs", configs)
}

func (s *Server) listConfigsByAppHandler(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.ListConfigsByApp(r.Context(), r.PathValue("app"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-configs", configs)
}

func (s *Server) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.GetConfig(r.Context(), r.PathValue("app"), r.PathValue("job"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-config", cfg)
}

func (s *Server) createConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req jobConfigCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := checkConfigSemantics(req.Schedule, req.ZoneID, req.Stages); err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.store.InsertConfig(r.Context(), &core.JobConfig{
		AppName:    req.AppName,
		JobName:    req.JobName,
		Schedule:   req.Schedule,
		ZoneID:     req.ZoneID,
		Enabled:    req.Enabled,
		Stages:     req.Stages,
		ChannelIDs: req.ChannelIDs,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-config", created)
}

func (s *Server) updateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req jobConfigUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := checkConfigSemantics(req.Schedule, req.ZoneID, req.Stages); err != nil {
		s.writeError(w, err)
		return
	}

	cfg, err := s.store.GetConfig(r.Context(), r.PathValue("app"), r.PathValue("job"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	cfg.Schedule = req.Schedule
	cfg.ZoneID = req.ZoneID
	cfg.Enabled = req.Enabled
	cfg.Stages = req.Stages
	cfg.ChannelIDs = req.ChannelIDs

	saved, err := s.store.SaveConfig(r.Context(), cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "job-config", saved)
}
