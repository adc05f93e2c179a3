package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/jobs"
	"server/internal/middleware"
	"server/internal/providers/activity"
	"server/internal/providers/llm"
	"server/internal/providers/taskqueue"
	"server/internal/scheduler"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	llmAPIKey := strings.TrimSpace(cfg.LLMAPIKey)
	if llmAPIKey == "" {
		credStore := credentials.NewStore(pool)
		keyFromStore, err := credStore.LLMAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("api: failed to load llm api key from store")
		} else {
			llmAPIKey = keyFromStore
		}
	}

	llmClient, err := llm.NewClient(llm.Options{
		APIKey:  llmAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure llm client")
	}
	if llmAPIKey == "" {
		logger.Warn().Str("model", cfg.LLMModel).Msg("api: llm api key missing, using synthetic drafts")
	}

	activityClient := activity.NewClient(activity.Options{
		BaseURL: cfg.ActivityGatewayURL,
		Logger:  &logger,
	})

	users := repo.NewUserRepository(pool)
	operations := repo.NewOperationRepository(pool)
	snippets := repo.NewSnippetRepository(pool)
	integrations := repo.NewIntegrationRepository(pool)

	registry := jobs.NewRegistry()
	registry.Register(jobs.NewReflectionHandler(users, snippets, integrations, activityClient, llmClient))
	registry.Register(jobs.NewCareerPlanHandler(users, snippets, llmClient))
	registry.Register(jobs.NewAssessmentHandler(users, snippets, llmClient))
	registry.Register(jobs.NewSyncHandler(integrations, snippets, activityClient))
	registry.Register(jobs.NewExportHandler(snippets, fileStore))

	jobService := jobs.NewService(jobs.ServiceOptions{
		Registry:   registry,
		Operations: operations,
		Users:      users,
		Logger:     logger,
		Timeout:    cfg.JobTimeout,
	})

	var processor jobs.Processor
	switch cfg.JobDispatchMode {
	case infra.DispatchModeDurable:
		processor = jobs.NewDispatchProcessor(jobs.DispatchOptions{
			Client: taskqueue.NewClient(taskqueue.Options{
				BaseURL: cfg.TaskDeliveryURL,
				APIKey:  cfg.TaskDeliveryAPIKey,
			}),
			CallbackBaseURL: cfg.JobCallbackBaseURL,
			Secret:          cfg.InternalJobSecret,
			Logger:          logger,
		})
		logger.Info().Str("delivery_url", cfg.TaskDeliveryURL).Msg("api: durable job dispatch enabled")
	default:
		processor = jobs.NewLocalProcessor(jobService, logger, cfg.JobQueueDelay)
		logger.Info().Msg("api: local job dispatch enabled")
	}

	checker := scheduler.NewChecker(scheduler.CheckerOptions{
		Users:      users,
		Snippets:   snippets,
		Operations: operations,
		Processor:  processor,
		Logger:     logger,
	})

	if cfg.RunScheduler {
		runner := scheduler.NewRunner(checker, cfg.SchedulerInterval, logger)
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("api: scheduler stopped with error")
			}
		}()
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip database unavailable")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Pool:       pool,
		Cfg:        cfg,
		Logger:     logger,
		Users:      users,
		Operations: operations,
		Snippets:   snippets,
		Jobs:       jobService,
		Processor:  processor,
		Checker:    checker,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, countryLookup))

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
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
	logger.Info().Msg("server stopped")
}
