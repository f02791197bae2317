package backend

import (
	"fmt"

	"healthdash/internal/config"
	"healthdash/internal/source"
)

// FromAppConfig converts the application config to backend config for the
// given backend type (DATA_BACKEND or IMPORT_BACKEND).
func FromAppConfig(appConfig *config.Config, backendType string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	bt := BackendType(backendType)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", backendType)
	}

	opts := source.DefaultReadOptions()
	opts.SkipRows = appConfig.DatasetSkipRows
	opts.Sheet = appConfig.DatasetSheet

	return Config{
		Type:                bt,
		DatasetPath:         appConfig.DatasetPath,
		ReadOptions:         opts,
		GCSBucket:           appConfig.GCSBucket,
		GCSObject:           appConfig.GCSObject,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.ReadOptions.SkipRows < 0 {
		return fmt.Errorf("skip rows must not be negative, got %d", c.ReadOptions.SkipRows)
	}

	switch c.Type {
	case FileBackend:
		if c.DatasetPath == "" {
			return fmt.Errorf("dataset path is required for file backend")
		}
	case GCSBackend:
		if c.GCSBucket == "" || c.GCSObject == "" {
			return fmt.Errorf("GCS bucket and object are required for gcs backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{FileBackend, GCSBackend, SheetsBackend, SQLiteBackend}
}
