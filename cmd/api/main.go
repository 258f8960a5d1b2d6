package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"draftdesk/internal/adapter/repo"
	httpapi "draftdesk/internal/http"
	"draftdesk/internal/http/handlers"
	"draftdesk/internal/infra"
	"draftdesk/internal/infra/credentials"
	"draftdesk/internal/infra/geoip"
	"draftdesk/internal/pipeline"
	"draftdesk/internal/providers/anthropic"
	"draftdesk/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	store, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	pool, err := credentials.NewPool(cfg.ClaudeAPIKeys)
	if err != nil {
		logger.Fatal().Err(err).Msg("no usable api keys")
	}
	factory, err := anthropic.NewFactory(anthropic.FactoryOptions{
		Pool:    pool,
		BaseURL: cfg.AnthropicBaseURL,
		Model:   cfg.ClaudeModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure anthropic client factory")
	}

	jobs := repo.NewJobRepository(dbpool)
	images := repo.NewJobImageRepository(dbpool)
	articles := repo.NewArticleRepository(dbpool)
	clients := repo.NewClientRepository(dbpool)
	presets := repo.NewStylePresetRepository(dbpool)
	admins := repo.NewAdminRepository(dbpool)

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Jobs:          jobs,
		Images:        images,
		Articles:      articles,
		Clients:       clients,
		Presets:       presets,
		Store:         store,
		Describer:     pipeline.NewDescriber(factory, logger),
		Generator:     pipeline.NewGenerator(factory, cfg.GenerateMaxAttempts, logger),
		Model:         factory.Model(),
		MaxConcurrent: int(cfg.MaxConcurrentJobs),
		Logger:        logger,
	})

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	app := &handlers.App{
		Jobs:           jobs,
		Images:         images,
		Articles:       articles,
		Clients:        clients,
		Presets:        presets,
		Admins:         admins,
		Runner:         runner,
		Store:          store,
		GeoIP:          resolver,
		Logger:         logger,
		SessionTTL:     cfg.SessionTTL,
		ImageRetention: cfg.ImageRetention,
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{LoginRatePerMin: cfg.LoginRatePerMin})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
