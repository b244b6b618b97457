package api

import (
	"net/http"
	"time"

	"github.com/TimurManjosov/licadvisor/internal/audit"
	"github.com/TimurManjosov/licadvisor/internal/telemetry"
	"github.com/rs/zerolog/hlog"
)

type reloadResponse struct {
	ETag     string `json:"etag"`
	Count    int    `json:"count"`
	Source   string `json:"source"`
	Changed  bool   `json:"changed"`
	LoadedAt string `json:"loaded_at"`
}

// handleReloadCatalog reloads the catalog from its configured source. A
// failed reload keeps serving the previous snapshot.
func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	before := s.holder.Load().ETag

	snap, err := s.holder.Reload(r.Context())
	if err != nil {
		s.recordAudit(audit.NewEventBuilder(r).WithAction(audit.ActionCatalogReload).
			WithETags(before, snap.ETag).Failure(err).Build())
		telemetry.CatalogReloads.WithLabelValues("error").Inc()
		hlog.FromRequest(r).Error().Err(err).Msg("catalog reload failed")
		InternalError(w, r, ErrCodeCatalogReload, "Catalog reload failed: "+err.Error())
		return
	}

	s.recordAudit(audit.NewEventBuilder(r).WithAction(audit.ActionCatalogReload).
		WithETags(before, snap.ETag).Success().Build())
	telemetry.CatalogReloads.WithLabelValues("ok").Inc()
	telemetry.CatalogRules.Set(float64(len(snap.Rules)))
	hlog.FromRequest(r).Info().
		Str("etag", snap.ETag).
		Int("rules", len(snap.Rules)).
		Msg("catalog reloaded")

	writeJSON(w, http.StatusOK, reloadResponse{
		ETag:     snap.ETag,
		Count:    len(snap.Rules),
		Source:   snap.Source,
		Changed:  snap.ETag != before,
		LoadedAt: snap.LoadedAt.UTC().Format(time.RFC3339),
	})
}
