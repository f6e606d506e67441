package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhaus/cloudpoll/internal/integration"
	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

// ErrCodeUpstream marks failures of the remote cloud, not of this service.
const ErrCodeUpstream = "upstream_error"

// handleListIntegrations returns the status of every configured instance.
func (s *Server) handleListIntegrations(w http.ResponseWriter, _ *http.Request) {
	instances := s.manager.Instances()
	statuses := make([]integration.Status, 0, len(instances))
	for _, inst := range instances {
		statuses = append(statuses, inst.Status())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"integrations": statuses,
		"count":        len(statuses),
	})
}

// handleGetIntegration returns the status of one instance by id or name.
func (s *Server) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "integration not found")
		return
	}
	writeJSON(w, http.StatusOK, inst.Status())
}

// handleRefreshIntegration triggers an immediate refresh of one instance.
// Concurrent triggers coalesce inside the coordinator, so hammering this
// endpoint cannot stampede the remote cloud.
func (s *Server) handleRefreshIntegration(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "integration not found")
		return
	}

	err := inst.Coordinator.Refresh(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, inst.Status())
	case errors.Is(err, poll.ErrAuth):
		writeError(w, http.StatusConflict, ErrCodeConflict, "integration needs re-authentication")
	case errors.Is(err, poll.ErrClosed):
		writeError(w, http.StatusConflict, ErrCodeConflict, "integration is shut down")
	case errors.Is(err, poll.ErrTransient):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
