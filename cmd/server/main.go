package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TimurManjosov/licadvisor/internal/api"
	"github.com/TimurManjosov/licadvisor/internal/audit"
	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/TimurManjosov/licadvisor/internal/config"
	"github.com/TimurManjosov/licadvisor/internal/logging"
	"github.com/TimurManjosov/licadvisor/internal/report"
	"github.com/TimurManjosov/licadvisor/internal/store"
	"github.com/TimurManjosov/licadvisor/internal/telemetry"
	"github.com/TimurManjosov/licadvisor/internal/webhook"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "licadvisor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logger.Close()
	log := logger.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry.Init()
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, "licadvisor")
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctxShut)
	}()

	src, closeSource, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	// initial snapshot; a bad catalog refuses to start
	holder, err := catalog.NewHolder(ctx, src)
	if err != nil {
		return fmt.Errorf("load catalog from %s: %w", src.Name(), err)
	}
	snap := holder.Load()
	telemetry.CatalogRules.Set(float64(len(snap.Rules)))
	log.Info().Str("source", snap.Source).Int("rules", len(snap.Rules)).Str("etag", snap.ETag).Msg("catalog loaded")

	hooks := webhook.NewDispatcher(webhookTargets(cfg), log)
	hooks.Start()
	defer hooks.Close()

	updates, unsubscribe := holder.Subscribe()
	defer unsubscribe()
	go func() {
		prev := snap
		for etag := range updates {
			next := holder.Load()
			telemetry.CatalogRules.Set(float64(len(next.Rules)))
			log.Info().Str("etag", etag).Int("rules", len(next.Rules)).Msg("catalog snapshot published")
			hooks.Dispatch(webhook.NewCatalogEvent(prev, next))
			prev = next
		}
	}()

	auditLog := audit.NewService(audit.NewLogSink(log), nil, cfg.AuditQueueSize, log)
	defer auditLog.Close()

	if cfg.CatalogWatch {
		w := catalog.NewWatcher(holder, cfg.CatalogPath, catalog.DefaultDebounce, log.With().Str("component", "watcher").Logger())
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("catalog watcher stopped")
			}
		}()
	}

	reports, err := report.New(report.Mode(cfg.ReportMode), report.LLMConfig{
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
		MockMode: cfg.LLMMockMode,
	}, log.With().Str("component", "report").Logger())
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	srvAPI := api.NewServer(holder, api.Options{
		AdminAPIKey:       cfg.AdminAPIKey,
		AdminAPIKeyHash:   cfg.AdminAPIKeyHash,
		RateLimitPerIP:    cfg.RateLimitPerIP,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RequestTimeout:    cfg.LLMTimeout + 5*time.Second,
		Reports:           reports,
		Audit:             auditLog,
		Logger:            log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srvAPI.Router(),
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 2)
	serve(log, "api", srv, errCh)
	serve(log, "metrics", metricsSrv, errCh)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	}

	// graceful shutdown
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	log.Info().Msg("stopped")
	return nil
}

func serve(log zerolog.Logger, name string, srv *http.Server, errCh chan<- error) {
	go func() {
		log.Info().Str("server", name).Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}()
}

func webhookTargets(cfg *config.Config) []webhook.Target {
	targets := make([]webhook.Target, 0, len(cfg.WebhookURLs))
	for _, u := range cfg.WebhookURLs {
		targets = append(targets, webhook.Target{
			URL:        u,
			Secret:     cfg.WebhookSecret,
			MaxRetries: cfg.WebhookMaxRetries,
			Timeout:    cfg.WebhookTimeout,
		})
	}
	return targets
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// buildSource maps CATALOG_SOURCE to a catalog source. The returned func
// releases any store connection.
func buildSource(ctx context.Context, cfg *config.Config) (catalog.Source, func(), error) {
	noop := func() {}
	switch cfg.CatalogSource {
	case "embedded":
		return catalog.EmbeddedSource{}, noop, nil
	case "file":
		return catalog.NewFileSource(cfg.CatalogPath), noop, nil
	case "memory":
		// memory store seeded from the embedded catalog
		list, err := catalog.Default()
		if err != nil {
			return nil, nil, err
		}
		st := store.NewMemoryStore()
		if err := st.ReplaceAll(ctx, list); err != nil {
			return nil, nil, err
		}
		return &catalog.StoreSource{Store: st, Kind: "memory"}, noop, nil
	case "sqlite", "postgres":
		st, err := store.NewStore(ctx, cfg.CatalogSource, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", cfg.CatalogSource, err)
		}
		return &catalog.StoreSource{Store: st, Kind: cfg.CatalogSource}, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported catalog source: %s", cfg.CatalogSource)
	}
}
