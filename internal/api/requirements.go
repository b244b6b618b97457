package api

import (
	"net/http"

	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/go-chi/chi/v5"
)

type requirementsResponse struct {
	Requirements []rules.Rule `json:"requirements"`
	Count        int          `json:"count"`
	ETag         string       `json:"etag"`
}

// handleListRequirements serves the active catalog. Clients holding the
// current ETag get 304 Not Modified.
func (s *Server) handleListRequirements(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Load()

	if match := r.Header.Get("If-None-Match"); match != "" && match == snap.ETag {
		w.Header().Set("ETag", snap.ETag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	list := snap.Rules
	if list == nil {
		list = []rules.Rule{}
	}
	w.Header().Set("ETag", snap.ETag)
	writeJSON(w, http.StatusOK, requirementsResponse{
		Requirements: list,
		Count:        len(list),
		ETag:         snap.ETag,
	})
}

func (s *Server) handleGetRequirement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := s.holder.Load()
	for i := range snap.Rules {
		if snap.Rules[i].ID == id {
			w.Header().Set("ETag", snap.ETag)
			writeJSON(w, http.StatusOK, snap.Rules[i])
			return
		}
	}
	NotFoundError(w, r, "Requirement not found: "+id)
}
