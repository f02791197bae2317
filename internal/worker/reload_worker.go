package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"healthdash/internal/amqp"
	"healthdash/internal/core"
	applog "healthdash/internal/log"
	"healthdash/internal/services"
)

// Reloader is the part of the dataset service the worker drives.
type Reloader interface {
	Snapshot() (services.Snapshot, error)
	Reload(ctx context.Context) (services.Snapshot, error)
}

// ReloadWorker refreshes the dashboard's table when an import is announced.
type ReloadWorker struct {
	dataset Reloader
}

func NewReloadWorker(dataset Reloader) *ReloadWorker {
	return &ReloadWorker{dataset: dataset}
}

// HandleDatasetImported reloads unless the announced import is already
// being served. A returned error makes the consumer requeue the message, so
// only transient failures are returned. An import whose data can never load
// is logged and acknowledged; the previous table keeps serving.
func (w *ReloadWorker) HandleDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error {
	slog.InfoContext(ctx, "Processing dataset imported message", applog.FieldComponent, applog.ComponentWorker,
		"import_id", msg.ImportID,
		"source", msg.Source,
		"records", msg.Records)

	if snap, err := w.dataset.Snapshot(); err == nil && snap.Info.ImportID == msg.ImportID {
		slog.InfoContext(ctx, "Import already loaded, skipping reload", applog.FieldComponent, applog.ComponentWorker, "import_id", msg.ImportID)
		return nil
	}

	snap, err := w.dataset.Reload(ctx)
	if isPermanent(err) {
		slog.ErrorContext(ctx, "Announced import cannot be loaded, keeping current dataset", applog.FieldComponent, applog.ComponentWorker,
			"import_id", msg.ImportID,
			"error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload after import %s: %w", msg.ImportID, err)
	}

	if snap.Info.ImportID != msg.ImportID {
		// a newer import landed between publish and reload
		slog.InfoContext(ctx, "Loaded a different import than announced", applog.FieldComponent, applog.ComponentWorker,
			"announced", msg.ImportID,
			"loaded", snap.Info.ImportID)
	}
	return nil
}

// isPermanent reports whether retrying the reload cannot succeed without a
// new import.
func isPermanent(err error) bool {
	return errors.Is(err, core.ErrMalformedInput) || errors.Is(err, core.ErrEmptyResult)
}
