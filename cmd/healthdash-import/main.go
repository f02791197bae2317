package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"healthdash/internal/amqp"
	"healthdash/internal/backend"
	"healthdash/internal/cli"
	"healthdash/internal/config"
	applog "healthdash/internal/log"
	"healthdash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentImport)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Import failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg, cfg.ImportBackend)
	if err != nil {
		return err
	}
	if !backendCfg.Type.IsSource() {
		return fmt.Errorf("IMPORT_BACKEND must be one of file, gcs, sheets; got %s", backendCfg.Type)
	}

	src, err := backend.NewFactory(logger).CreateSource(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create %s source: %w", backendCfg.Type, err)
	}
	if src.Cleanup != nil {
		defer func() {
			if err := src.Cleanup(); err != nil {
				logger.Warn("Source cleanup failed", applog.FieldError, err)
			}
		}()
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the import is still worth storing; dashboards see it on their next reload
			logger.WithComponent(applog.ComponentAMQP).Error("AMQP unavailable, import will not be announced", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	start := time.Now()
	info, err := services.NewImportService(src.Source, repo, publisher, cfg.ImportKeep).Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("Import completed",
		applog.FieldImportID, info.ID,
		applog.FieldSource, info.Source,
		applog.FieldRecords, info.Records,
		applog.FieldMinYear, info.MinYear,
		applog.FieldMaxYear, info.MaxYear,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
