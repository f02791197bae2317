package backend

import (
	"context"

	"healthdash/internal/services"
	"healthdash/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// LoaderResult contains the dataset loader and an optional cleanup function
type LoaderResult struct {
	Loader  services.Loader
	Cleanup CleanupFunc
}

// SourceResult contains an import source and an optional cleanup function
type SourceResult struct {
	Source  source.Source
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateLoader builds the loader the dashboard reloads its table from
	CreateLoader(ctx context.Context, config Config) (*LoaderResult, error)

	// CreateSource builds the wide-table source an import reads from
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File and GCS
	DatasetPath string
	ReadOptions source.ReadOptions
	GCSBucket   string
	GCSObject   string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// SQLite
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	GCSBackend    BackendType = "gcs"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, GCSBackend, SheetsBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// IsSource reports whether the backend reads a wide table, which is what
// imports need.
func (bt BackendType) IsSource() bool {
	return bt == FileBackend || bt == GCSBackend || bt == SheetsBackend
}
