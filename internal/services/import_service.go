package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"healthdash/internal/amqp"
	"healthdash/internal/core"
	applog "healthdash/internal/log"
	"healthdash/internal/source"
	"healthdash/internal/storage"
)

// ImportStore is the write side of the import repository.
type ImportStore interface {
	SaveImport(ctx context.Context, info storage.ImportInfo, records []core.ExpenditureRecord) error
	PruneImports(ctx context.Context, keep int) (int, error)
}

// Publisher announces stored imports.
type Publisher interface {
	PublishDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error
}

// ImportService copies a source into the database as a new snapshot.
type ImportService struct {
	source    source.Source
	store     ImportStore
	publisher Publisher
	keep      int

	newID func() string
	now   func() time.Time
}

// NewImportService wires an import job. publisher may be nil; keep <= 0
// disables pruning.
func NewImportService(src source.Source, store ImportStore, publisher Publisher, keep int) *ImportService {
	return &ImportService{
		source:    src,
		store:     store,
		publisher: publisher,
		keep:      keep,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Run fetches, validates, stores and announces one import. Nothing is
// stored when the table does not load.
func (s *ImportService) Run(ctx context.Context) (storage.ImportInfo, error) {
	raw, err := s.source.Fetch(ctx)
	if err != nil {
		return storage.ImportInfo{}, fmt.Errorf("fetch %s: %w", s.source.Name(), err)
	}
	table, err := core.Load(raw)
	if err != nil {
		return storage.ImportInfo{}, fmt.Errorf("load %s: %w", s.source.Name(), err)
	}
	minYear, maxYear, err := table.YearRange()
	if err != nil {
		return storage.ImportInfo{}, err
	}

	records := table.Records()
	info := storage.ImportInfo{
		ID:         s.newID(),
		Source:     s.source.Name(),
		Records:    len(records),
		MinYear:    minYear,
		MaxYear:    maxYear,
		ImportedAt: s.now(),
	}
	if err := s.store.SaveImport(ctx, info, records); err != nil {
		return storage.ImportInfo{}, fmt.Errorf("save import: %w", err)
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogDatasetLoaded(ctx, applog.OpImport, info.Source, info.Records, len(table.CountryNames()), minYear, maxYear)

	if s.keep > 0 {
		if _, err := s.store.PruneImports(ctx, s.keep); err != nil {
			slog.WarnContext(ctx, "Failed to prune old imports", applog.FieldComponent, applog.ComponentImport, "error", err, "keep", s.keep)
		}
	}

	if s.publisher == nil {
		slog.InfoContext(ctx, "AMQP not configured, skipping import notification", applog.FieldComponent, applog.ComponentImport, "import_id", info.ID)
		return info, nil
	}
	msg := amqp.NewDatasetImportedMessage(info.ID, info.Source, info.Records, info.MinYear, info.MaxYear)
	if err := s.publisher.PublishDatasetImported(ctx, msg); err != nil {
		// the import is stored; dashboards pick it up on their next reload
		slog.ErrorContext(ctx, "Failed to publish import notification", applog.FieldComponent, applog.ComponentImport, applog.FieldOperation, applog.OpPublish, "import_id", info.ID, "error", err)
	}
	return info, nil
}
