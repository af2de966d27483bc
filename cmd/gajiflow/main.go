package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gajiflow/gajiflow/internal/app"
	"github.com/gajiflow/gajiflow/internal/observability"
	"github.com/gajiflow/gajiflow/internal/payroll"
	"github.com/gajiflow/gajiflow/internal/permissions"
	"github.com/gajiflow/gajiflow/internal/platform/cache"
	"github.com/gajiflow/gajiflow/internal/platform/db"
	"github.com/gajiflow/gajiflow/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, permission caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	permissionsRepo := permissions.NewRepository(pool)
	matrixCache := permissions.NewMatrixCache(redisClient, cfg.PermissionCacheTTL, logger)
	permissionsService := permissions.NewService(permissionsRepo, matrixCache, logger)
	permissionsHandler := permissions.NewHandler(logger, permissionsService)
	permissionsMiddleware := permissions.Middleware{Service: permissionsService, Logger: logger}

	payrollRepo := payroll.NewRepository(pool)
	payrollService := payroll.NewService(payrollRepo, permissionsService, logger, metrics)
	payrollHandler := payroll.NewHandler(logger, payrollService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		PayrollHandler:        payrollHandler,
		PermissionsHandler:    permissionsHandler,
		PermissionsMiddleware: permissionsMiddleware,
		JobsHandler:           jobsHandler,
		Metrics:               metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
