package web

import (
	"net/http"
)

func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, "settings", settings)
}

// updateSettingsHandler merges a partial update onto the stored row. The
// database trigger broadcasts the new row; the local cache is replaced
// immediately so this process does not wait for its own notification.
func (s *Server) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}

	current, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.SuccessRetentionDays != nil {
		current.SuccessRetentionDays = *req.SuccessRetentionDays
	}
	if req.FailureRetentionDays != nil {
		current.FailureRetentionDays = *req.FailureRetentionDays
	}
	if req.MaintenanceMode != nil {
		current.MaintenanceMode = *req.MaintenanceMode
	}
	if req.DefaultChannels != nil {
		current.DefaultChannels = *req.DefaultChannels
	}
	if req.ErrorChannels != nil {
		current.ErrorChannels = *req.ErrorChannels
	}
	if req.MaxStageDurationHours != nil {
		current.MaxStageDurationHours = *req.MaxStageDurationHours
	}

	saved, err := s.store.SaveSettings(r.Context(), current)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.settings.Replace(saved)
	s.writeSuccess(w, "settings", saved)
}
