package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"riskdash/internal/amqp"
	"riskdash/internal/cache"
	"riskdash/internal/cli"
	"riskdash/internal/dataset/memory"
	apphttp "riskdash/internal/http"
	applog "riskdash/internal/log"
	"riskdash/internal/middleware/ratelimit"
	"riskdash/internal/version"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger("info", "text"))
	logger := applog.New(applog.Config{
		Output:    os.Stdout,
		Format:    cfg.LogFormat,
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)
	logger.Info("Starting riskdash", "version", version.FormatVersion(), "backend", cfg.DataBackend)

	uploads := memory.New(cfg.UploadMaxCount, cfg.UploadTTL)
	caches := cache.NewManager()
	caches.Register("uploads", uploads.Cleaner())

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dash, err := cli.BuildDashboard(startCtx, cfg, logger, uploads)
	cancel()
	if err != nil {
		logger.Error("Failed to initialize dashboard", applog.FieldError, err.Error(), applog.FieldOperation, applog.OpStartup)
		os.Exit(1)
	}

	var publisher apphttp.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Dashboards keep working without the broker; imports answer 503.
			logger.Error("Failed to initialize AMQP client, imports disabled", applog.FieldError, err.Error())
		} else {
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("Imports disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit: ratelimit.Config{
			RPS:             cfg.RateLimitRPS,
			Burst:           cfg.RateLimitBurst,
			CleanupInterval: 5 * time.Minute,
			IdleTimeout:     10 * time.Minute,
		},
		UploadMaxBytes: cfg.UploadMaxBytes,
	}, apphttp.Deps{
		Service:   dash.Service,
		Renderer:  dash.Renderer,
		Uploads:   uploads,
		Publisher: publisher,
		Caches:    caches,
		Logger:    logger,
	})
	caches.StartCleanup(time.Minute)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err.Error())
			}
		}
		if err := dash.Close(); err != nil {
			logger.Warn("Dataset source close error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
