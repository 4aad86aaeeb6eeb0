// Package web is the REST façade: a thin HTTP layer over the store, the
// ingestor and the notification dispatcher. Responses use a JSend-style
// envelope.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/dagwatch/dagwatch/core"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

type envelope struct {
	Status    string            `json:"status"`
	Data      map[string]any    `json:"data,omitempty"`
	Reasons   map[string]string `json:"reasons,omitempty"`
	Message   string            `json:"message,omitempty"`
	Code      int               `json:"code,omitempty"`
	ErrorData map[string]any    `json:"errorData,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, httpStatus int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
	}
}

// writeSuccess emits {"status":"success","data":{key: value}}.
func (s *Server) writeSuccess(w http.ResponseWriter, key string, value any) {
	s.writeJSON(w, http.StatusOK, envelope{
		Status: statusSuccess,
		Data:   map[string]any{key: value},
	})
}

// writeFailReasons emits a fail envelope with per-field reasons.
func (s *Server) writeFailReasons(w http.ResponseWriter, reasons map[string]string) {
	s.writeJSON(w, http.StatusBadRequest, envelope{
		Status:  statusFail,
		Reasons: reasons,
	})
}

// writeError maps an application error onto the envelope: validation
// failures and absent entities are "fail", everything else is "error".
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch core.KindOf(err) {
	case core.KindBadRequest:
		s.writeJSON(w, http.StatusBadRequest, envelope{Status: statusFail, Message: err.Error()})
	case core.KindNotFound:
		s.writeJSON(w, http.StatusNotFound, envelope{Status: statusFail, Message: err.Error()})
	case core.KindConflict:
		s.writeJSON(w, http.StatusConflict, envelope{Status: statusFail, Message: err.Error()})
	default:
		s.logger.Errorf("request failed: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, envelope{
			Status:  statusError,
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
}
