package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/jobs"
	"server/internal/providers/activity"
	"server/internal/providers/llm"
	"server/internal/providers/taskqueue"
	"server/internal/scheduler"
)

// Standalone scheduler loop for deployments that keep the hourly scan out of
// the API process. In durable dispatch mode it only enqueues delivery tasks;
// in local mode it runs the reflections itself.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "scheduler").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: db connection failed")
	}
	defer pool.Close()

	users := repo.NewUserRepository(pool)
	operations := repo.NewOperationRepository(pool)
	snippets := repo.NewSnippetRepository(pool)
	integrations := repo.NewIntegrationRepository(pool)

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
	default:
		llmAPIKey := strings.TrimSpace(cfg.LLMAPIKey)
		if llmAPIKey == "" {
			keyFromStore, err := credentials.NewStore(pool).LLMAPIKey(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("scheduler: failed to load llm api key from store")
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
			logger.Fatal().Err(err).Msg("scheduler: failed to configure llm client")
		}
		activityClient := activity.NewClient(activity.Options{
			BaseURL: cfg.ActivityGatewayURL,
			Logger:  &logger,
		})

		registry := jobs.NewRegistry()
		registry.Register(jobs.NewReflectionHandler(users, snippets, integrations, activityClient, llmClient))

		svc := jobs.NewService(jobs.ServiceOptions{
			Registry:   registry,
			Operations: operations,
			Users:      users,
			Logger:     logger,
			Timeout:    cfg.JobTimeout,
		})
		processor = jobs.NewLocalProcessor(svc, logger, cfg.JobQueueDelay)
	}

	checker := scheduler.NewChecker(scheduler.CheckerOptions{
		Users:      users,
		Snippets:   snippets,
		Operations: operations,
		Processor:  processor,
		Logger:     logger,
	})

	runner := scheduler.NewRunner(checker, cfg.SchedulerInterval, logger)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("scheduler: stopped with error")
	}
	logger.Info().Msg("scheduler: stopped")
}
