package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"renttalk-tenant-portal/api/internal/app"
	"renttalk-tenant-portal/api/internal/jobs"
	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/metricsx"
	"renttalk-tenant-portal/shared/observability"
)

func main() {
	cfg, problems := config.Load("worker", 8083)
	version := strings.TrimSpace(os.Getenv("VERSION"))
	logger := logx.New(cfg.ServiceName, cfg.Env, version, cfg.LogLevel)
	ctx := context.Background()

	if cfg.AsynqRedisAddr == "" {
		problems = append(problems, config.Problem{Field: "ASYNQ_REDIS_ADDR", Message: "ASYNQ_REDIS_ADDR is required"})
	}
	if cfg.StoreDriver == config.StoreDriverMemory {
		problems = append(problems, config.Problem{Field: "STORE_DRIVER", Message: "worker needs a shared store, not memory"})
	}
	if len(problems) > 0 {
		logger.Error(ctx, "config_invalid", "invalid config",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.Any("problems", problems),
		)
		os.Exit(1)
	}

	if cfg.OtelEnabled {
		if shutdown, err := observability.InitTracer(ctx, observability.TracerConfigFrom(cfg)); err == nil {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}
	metricsx.Register()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.AsynqRedisAddr,
		Password: cfg.AsynqRedisPass,
		DB:       cfg.AsynqRedisDB,
	}
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	portalApp, err := app.Build(ctx, cfg, logger, app.Options{
		Dispatcher: jobs.AsynqDispatcher{Client: client, Queue: cfg.AsynqQueue},
	})
	if err != nil {
		logger.Error(ctx, "store_init_failed", "record store init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer portalApp.Close()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues: map[string]int{
			cfg.AsynqQueue: 1,
		},
		Logger: logx.AsynqLogger{L: logger},
	})
	defer server.Shutdown()

	mux := asynq.NewServeMux()
	jobs.Handlers{
		Messages: portalApp.Portal.Messages,
		Payments: portalApp.Portal.Payments,
		Log:      logger,
	}.Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})
	defer scheduler.Shutdown()
	if _, err := jobs.RegisterOverdueScan(scheduler, time.Duration(cfg.OverdueScanSec)*time.Second, cfg.AsynqQueue); err != nil {
		logger.Error(ctx, "scheduler_init_failed", "scheduler init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error(ctx, "scheduler_start_failed", "scheduler start failed",
			slog.String("error_code", "INTERNAL_ERROR"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go jobs.MonitorQueueDepth(monitorCtx, inspector, cfg.AsynqQueue, 10*time.Second)

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "worker_start", "worker started",
			slog.String("queue", cfg.AsynqQueue),
			slog.Int("concurrency", cfg.AsynqConcurrency),
			slog.Int("overdue_scan_sec", cfg.OverdueScanSec),
		)
		errCh <- server.Run(mux)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info(ctx, "shutdown_signal", "received signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, asynq.ErrServerClosed) {
			logger.Error(ctx, "worker_failed", "worker failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	logger.Info(ctx, "worker_stop", "worker stopped")
}
