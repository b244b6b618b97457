package api

import (
	"net/http"

	"github.com/TimurManjosov/licadvisor/internal/engine"
	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/report"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/TimurManjosov/licadvisor/internal/telemetry"
	"github.com/TimurManjosov/licadvisor/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AssessResponse is the body of a successful POST /v1/assess.
type AssessResponse struct {
	AssessmentID string                  `json:"assessment_id"`
	Profile      profile.BusinessProfile `json:"profile"`
	Matches      []string                `json:"matches"`
	Rules        []*rules.Rule           `json:"rules"`
	Report       *report.Report          `json:"report"`
	ETag         string                  `json:"etag"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var in validation.ProfileInput
	if !decodeJSON(w, r, maxAssessBodySize, &in) {
		telemetry.Assessments.WithLabelValues("bad_request").Inc()
		return
	}

	result, p := validation.ValidateProfile(in)
	if !result.Valid {
		telemetry.Assessments.WithLabelValues("invalid").Inc()
		ValidationError(w, r, "Profile validation failed", result.Errors)
		return
	}

	snap := s.holder.Load()

	ctx, span := s.tracer.Start(r.Context(), "assess",
		trace.WithAttributes(
			attribute.Float64("profile.size_m2", p.SizeM2),
			attribute.Int("profile.seats", p.Seats),
			attribute.String("catalog.etag", snap.ETag),
		))
	defer span.End()

	matched := engine.Evaluate(p, snap.Rules)
	span.SetAttributes(attribute.Int("assess.matched", len(matched)))
	telemetry.MatchedRules.Observe(float64(len(matched)))

	resp := AssessResponse{
		AssessmentID: uuid.NewString(),
		Profile:      p,
		Matches:      matched.IDs(),
		Rules:        matched,
		ETag:         snap.ETag,
	}

	if s.reports != nil && r.URL.Query().Get("report") != "false" {
		rep, err := s.reports.Generate(ctx, p, matched)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "report generation failed")
			hlog.FromRequest(r).Warn().Err(err).
				Str("assessment_id", resp.AssessmentID).
				Msg("report generation failed")
		} else {
			resp.Report = rep
		}
	}

	telemetry.Assessments.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}
