package backend

import (
	"context"
	"fmt"

	applog "healthdash/internal/log"
	"healthdash/internal/services"
	"healthdash/internal/source"
	"healthdash/internal/source/gcs"
	"healthdash/internal/source/google"
	"healthdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateLoader implements Factory.CreateLoader
func (f *DefaultFactory) CreateLoader(ctx context.Context, config Config) (*LoaderResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Type == SQLiteBackend {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &LoaderResult{
			Loader:  services.StoreLoader{Store: repo},
			Cleanup: repo.Close,
		}, nil
	}

	src, err := f.CreateSource(ctx, config)
	if err != nil {
		return nil, err
	}
	return &LoaderResult{
		Loader:  services.SourceLoader{Source: src.Source},
		Cleanup: src.Cleanup,
	}, nil
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		src := source.NewFileSource(config.DatasetPath, config.ReadOptions)
		f.logger.Info("Initialized file backend", "path", config.DatasetPath, "skip_rows", config.ReadOptions.SkipRows)
		return &SourceResult{Source: src}, nil

	case GCSBackend:
		src, err := gcs.New(ctx, config.GCSBucket, config.GCSObject, config.ReadOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS source: %w", err)
		}
		f.logger.Info("Initialized GCS backend", "bucket", config.GCSBucket, "object", config.GCSObject)
		return &SourceResult{Source: src, Cleanup: src.Close}, nil

	case SheetsBackend:
		cli, err := google.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, config.ReadOptions.SkipRows)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
		return &SourceResult{Source: cli}, nil

	default:
		return nil, fmt.Errorf("backend %s cannot act as an import source", config.Type)
	}
}
