package main

import (
	"context"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/arqbot/internal/config"
	"github.com/briangreenhill/arqbot/internal/jobs"
	"github.com/briangreenhill/arqbot/internal/logging"
)

func main() {
	bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("config error")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("logger error")
	}
	logger = logging.Component(logger, "worker")

	redis := asynq.RedisClientOpt{Addr: cfg.Worker.RedisAddr}
	asynqLog := jobs.NewLogger(logger)

	handler, err := jobs.NewMaintenanceHandler(cfg.Worker.APIURL, cfg.AdminToken, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("maintenance handler")
	}

	// Scheduler enqueues the periodic maintenance task
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		Logger: asynqLog,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("[asynq] enqueue failed")
				return
			}
			logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("[asynq] enqueued task")
		},
	})

	task, err := jobs.NewCacheMaintenanceTask("scheduler",
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("build maintenance task")
	}
	entryID, err := scheduler.Register(cfg.Worker.MaintenanceCron, task)
	if err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.Worker.MaintenanceCron).Msg("register maintenance schedule")
	}
	logger.Info().Str("entry_id", entryID).Str("cron", cfg.Worker.MaintenanceCron).Msg("maintenance scheduled")

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start")
	}
	defer scheduler.Shutdown()

	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			jobs.QueueMaintenance: 10,
			"default":             5,
		},
		Logger: asynqLog,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().
				Err(err).
				Str("task", t.Type()).
				Int("retry", retried).
				Int("max_retry", maxRetry).
				Msg("[asynq] task failed")
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(jobs.TaskCacheMaintenance, handler)

	logger.Info().Str("redis", cfg.Worker.RedisAddr).Str("api", cfg.Worker.APIURL).Msg("Worker running...")
	if err := srv.Run(mux); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
	}
}
