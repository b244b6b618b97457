package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/TimurManjosov/licadvisor/internal/audit"
	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/TimurManjosov/licadvisor/internal/report"
	"github.com/TimurManjosov/licadvisor/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxAssessBodySize     = 64 * 1024
	defaultRequestTimeout = 5 * time.Second
	defaultRateLimitPerIP = 100
)

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	AdminAPIKey       string
	AdminAPIKeyHash   string // bcrypt hash; overrides AdminAPIKey when set
	RateLimitPerIP    int    // assessments per minute per client IP
	CORSAllowedOrigin string
	RequestTimeout    time.Duration
	Reports           report.Generator // nil disables reports
	Audit             *audit.Service   // nil disables the admin audit trail
	Logger            zerolog.Logger
}

type Server struct {
	holder       *catalog.Holder
	reports      report.Generator
	audit        *audit.Service
	adminAPIKey  string
	adminKeyHash string
	rateLimit    int
	corsOrigin   string
	timeout      time.Duration
	log          zerolog.Logger
	tracer       trace.Tracer
}

func NewServer(holder *catalog.Holder, opts Options) *Server {
	s := &Server{
		holder:       holder,
		reports:      opts.Reports,
		audit:        opts.Audit,
		adminAPIKey:  opts.AdminAPIKey,
		adminKeyHash: opts.AdminAPIKeyHash,
		rateLimit:    opts.RateLimitPerIP,
		corsOrigin:   opts.CORSAllowedOrigin,
		timeout:      opts.RequestTimeout,
		log:          opts.Logger,
		tracer:       telemetry.Tracer(),
	}
	if s.rateLimit <= 0 {
		s.rateLimit = defaultRateLimitPerIP
	}
	if s.timeout <= 0 {
		s.timeout = defaultRequestTimeout
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.requestLogger()...)
	r.Use(telemetry.Middleware)
	if s.corsOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.corsOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
			ExposedHeaders:   []string{"ETag"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.Timeout(s.timeout))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// public: catalog (ETag)
	r.Get("/v1/requirements", s.handleListRequirements)
	r.Get("/v1/requirements/{id}", s.handleGetRequirement)

	// public: assessments, rate limited per client IP
	r.With(httprate.Limit(
		s.rateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(RateLimitedError),
	)).Post("/v1/assess", s.handleAssess)

	// admin (protected)
	r.Post("/v1/admin/catalog/reload", s.authAdmin(s.handleReloadCatalog))

	return r
}

// requestLogger attaches the server logger to each request context and
// writes one access log line per request.
func (s *Server) requestLogger() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(s.log),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		}),
	}
}

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

func (s *Server) recordAudit(e audit.Event) {
	if s.audit != nil {
		s.audit.Log(e)
	}
}

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			s.recordAudit(audit.NewEventBuilder(r).WithAction(audit.ActionAuthFailed).
				WithResource("admin").Failure(errMissingToken).Build())
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		if !s.validAdminKey(got) {
			s.recordAudit(audit.NewEventBuilder(r).WithAction(audit.ActionAuthFailed).
				WithResource("admin").Failure(errInvalidToken).Build())
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
