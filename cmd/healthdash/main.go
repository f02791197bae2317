package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"healthdash/internal/amqp"
	"healthdash/internal/backend"
	"healthdash/internal/cli"
	"healthdash/internal/config"
	apphttp "healthdash/internal/http"
	applog "healthdash/internal/log"
	"healthdash/internal/services"
	"healthdash/internal/storage"
	"healthdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg, cfg.DataBackend)
	if err != nil {
		return err
	}

	loader, err := backend.NewFactory(logger).CreateLoader(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create %s loader: %w", backendCfg.Type, err)
	}
	if loader.Cleanup != nil {
		defer func() {
			if err := loader.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", applog.FieldError, err)
			}
		}()
	}

	dataset := services.NewDatasetService(loader.Loader)
	dashboard := services.NewDashboard(dataset, cfg.DefaultYear, cfg.TopN)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		CacheSize:          cfg.CacheSize,
		TrustedProxies:     cfg.TrustedProxies,
	}, dataset, dashboard, logger)
	if err != nil {
		return err
	}
	srv.MaxHeaderBytes = 1 << 16

	// An empty database is not fatal: the dashboard reports not-ready until
	// the first import is announced.
	if _, err := dataset.Reload(ctx); err != nil {
		if backendCfg.Type != backend.SQLiteBackend || !errors.Is(err, storage.ErrNoImports) {
			return err
		}
		logger.Warn("No import in database yet, waiting for one", applog.FieldSource, cfg.SQLiteDBPath)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting healthdash server", "port", cfg.Port, "backend", backendCfg.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		reloadOnHangup(gctx, dataset, logger)
		return nil
	})

	if cfg.AMQPEnabled() {
		if backendCfg.Type != backend.SQLiteBackend {
			logger.Warn("AMQP_URL is set but DATA_BACKEND is not sqlite, import notifications are ignored",
				"backend", backendCfg.Type)
		} else {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("connect to AMQP: %w", err)
			}
			defer client.Close()

			reloadWorker := worker.NewReloadWorker(dataset)
			g.Go(func() error {
				err := client.ConsumeDatasetImported(gctx, reloadWorker.HandleDatasetImported)
				if err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("consume import notifications: %w", err)
				}
				return nil
			})
			logger.WithComponent(applog.ComponentAMQP).Info("Listening for import notifications", "queue", cfg.AMQPQueue)
		}
	}

	return g.Wait()
}

// reloadOnHangup reloads the dataset on SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, dataset *services.DatasetService, logger *applog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	logger = logger.WithComponent(applog.ComponentDataset)
	structured := applog.NewStructuredLogger(logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, reloading dataset")
			if _, err := dataset.Reload(ctx); err != nil {
				structured.LogError(ctx, "Dataset reload failed, keeping the previous table", err,
					applog.ComponentDataset, applog.OpReload, nil)
			}
		}
	}
}
