package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
	"github.com/kestrelhaus/cloudpoll/internal/integration"
)

// instanceEntities groups one instance's current records for listing.
type instanceEntities struct {
	Instance string           `json:"instance"`
	Name     string           `json:"name"`
	Type     integration.Type `json:"type"`
	Records  []entity.Record  `json:"records"`
}

// handleListEntities returns the current records of every instance,
// keyed in deterministic order.
func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	instances := s.manager.Instances()
	out := make([]instanceEntities, 0, len(instances))
	for _, inst := range instances {
		snap := inst.Coordinator.Snapshot()
		records := make([]entity.Record, 0, len(snap))
		for _, key := range snap.Keys() {
			records = append(records, snap[key])
		}
		out = append(out, instanceEntities{
			Instance: inst.ID,
			Name:     inst.Name,
			Type:     inst.Type,
			Records:  records,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": out,
		"count":    len(out),
	})
}

// handleGetEntity returns one record by instance and key.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.manager.Get(chi.URLParam(r, "instance"))
	if !ok {
		writeNotFound(w, "integration not found")
		return
	}

	view := entity.NewView(inst.Coordinator, chi.URLParam(r, "key"))
	rec, err := view.Record()
	if err != nil {
		if errors.Is(err, entity.ErrKeyNotFound) {
			writeNotFound(w, "entity not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
