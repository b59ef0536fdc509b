package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"riskdash/internal/amqp"
	"riskdash/internal/backend"
	"riskdash/internal/cli"
	applog "riskdash/internal/log"
	"riskdash/internal/storage"
	"riskdash/internal/version"
	"riskdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger("info", "text"))
	logger := applog.New(applog.Config{
		Output:    os.Stdout,
		Format:    cfg.LogFormat,
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)
	logger.Info("Starting riskdash-worker", "version", version.FormatVersion())

	if cfg.AMQPURL == "" && cfg.ImportSchedule == "" {
		logger.Error("Nothing to do: set AMQP_URL and/or IMPORT_SCHEDULE")
		os.Exit(1)
	}

	store := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer store.Close()

	base, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	importer := worker.NewImportWorker(store, factory, base, cfg.KeepImports, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP consumption disabled - no AMQP_URL provided")
	}

	var scheduler *worker.Scheduler
	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)
	if cfg.ImportSchedule != "" {
		scheduler, err = worker.NewScheduler(ctx, cfg.ImportSchedule, importer.ImportDefault)
		if err != nil {
			logger.Error("Failed to initialize import scheduler", applog.FieldError, err.Error())
			os.Exit(1)
		}
	}

	// Seed an empty snapshot store before the first scheduled run.
	if _, err := store.Latest(ctx); errors.Is(err, storage.ErrNoImports) {
		logger.Info("Snapshot store is empty, running initial import")
		if err := importer.ImportDefault(ctx); err != nil {
			logger.Error("Initial import failed", applog.FieldError, err.Error(), applog.FieldOperation, applog.OpImport)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.Consume(gctx, importer.HandleImportRequest)
		})
	}
	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
