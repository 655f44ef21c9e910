package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"printforge/internal/adapter/repo"
	"printforge/internal/domain"
	"printforge/internal/http/handlers"
	"printforge/internal/http/httpapi"
	"printforge/internal/infra"
	"printforge/internal/infra/geoip"
	"printforge/internal/middleware"
	"printforge/internal/notify"
	"printforge/internal/pipeline"
	"printforge/internal/providers/fulfill"
	"printforge/internal/providers/image"
	"printforge/internal/providers/mesh"
	"printforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Job store: Postgres when configured, in-memory otherwise.
	var jobs domain.JobRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		pg := repo.NewJobRepository(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare database schema")
		}
		jobs = pg
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory job store")
		jobs = repo.NewMemoryJobRepository()
	}

	outputDir := cfg.OutputDir
	if abs, err := filepath.Abs(outputDir); err == nil {
		outputDir = abs
	}
	store, err := storage.NewFileStore(outputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	imageGen := image.NewGeminiGenerator(image.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
	})
	meshGen := mesh.NewMeshyClient(mesh.MeshyOptions{
		APIKey:  cfg.MeshyAPIKey,
		BaseURL: cfg.MeshyBaseURL,
	})

	var submitter fulfill.Submitter
	shapeways := fulfill.NewShapewaysClient(fulfill.ShapewaysOptions{
		BaseURL:      cfg.ShapewaysBaseURL,
		ClientID:     cfg.ShapewaysClientID,
		ClientSecret: cfg.ShapewaysClientSecret,
	})
	if shapeways.Configured() {
		submitter = shapeways
	} else {
		logger.Warn().Msg("shapeways credentials missing, fulfillment submission disabled")
	}

	svc := pipeline.NewService(jobs, imageGen, meshGen, store, logger, pipeline.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		MeshTimeout:   cfg.MeshTimeout,
		PollInterval:  cfg.MeshPollInterval,
	})
	worker := pipeline.NewWorker(svc, logger, cfg.QueueCapacity, cfg.MeshPoolSize)
	worker.Start(ctx)

	notifier := notify.NewLogNotifier(logger)
	trigger := pipeline.NewTrigger(worker, svc, store, submitter, notifier, logger)

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	app := handlers.NewApp(svc, worker, trigger, store, logger)
	router := httpapi.NewRouter(app, logger, lookup, outputDir)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	worker.Wait()
	logger.Info().Msg("server stopped")
}
