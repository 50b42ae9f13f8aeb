package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vidfriends/ingest/internal/auth"
	"github.com/vidfriends/ingest/internal/config"
	"github.com/vidfriends/ingest/internal/db"
	"github.com/vidfriends/ingest/internal/handlers"
	"github.com/vidfriends/ingest/internal/middleware"
	"github.com/vidfriends/ingest/internal/mux"
	"github.com/vidfriends/ingest/internal/repositories"
	"github.com/vidfriends/ingest/internal/storage"
	"github.com/vidfriends/ingest/internal/videos"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, error) {
	provider, err := mux.NewClient(mux.Config{
		BaseURL:      cfg.Mux.BaseURL,
		TokenID:      cfg.Mux.TokenID,
		TokenSecret:  cfg.Mux.TokenSecret,
		Timeout:      cfg.Mux.Timeout,
		BreakerDelay: cfg.Mux.BreakerDelay,
	})
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("build mux client: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	assets := repositories.NewPostgresAssetRepository(pool)

	deps := handlers.Dependencies{
		Database:   pool,
		Verifier:   videos.NewSignatureVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance),
		Reconciler: videos.NewReconciler(assets),
		Auth:       auth.NewTokenVerifier(cfg.JWTSecret, auth.WithIssuer(cfg.JWTIssuer)),
		Uploads: videos.NewUploadInitiator(
			repositories.NewPostgresAccountRepository(pool),
			repositories.NewPostgresVideoRepository(pool),
			provider,
			assets,
			cfg.Mux.CORSOrigin,
		),
		Limiter:    middleware.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitRequests, 0),
		Metrics:    handlers.NewMetrics(registry),
		Gatherer:   registry,
	}

	if cfg.Archive.Enabled() {
		archive, err := storage.NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			return handlers.Dependencies{}, fmt.Errorf("build webhook archive: %w", err)
		}
		deps.Archive = archive
		logger.Info("archiving webhook payloads", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	}

	return deps, nil
}
