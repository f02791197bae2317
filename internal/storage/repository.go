package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"healthdash/internal/core"
	applog "healthdash/internal/log"
)

// ErrNoImports is returned when the database holds no dataset import.
var ErrNoImports = errors.New("no dataset imports")

// timeLayout is fixed-width so imported_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ImportInfo describes one stored snapshot of the dataset.
type ImportInfo struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Records    int       `json:"records"`
	MinYear    int       `json:"min_year"`
	MaxYear    int       `json:"max_year"`
	ImportedAt time.Time `json:"imported_at"`
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveImport stores the import row and all its records in one transaction.
func (r *SQLiteRepository) SaveImport(ctx context.Context, info ImportInfo, records []core.ExpenditureRecord) error {
	if info.ID == "" {
		return errors.New("import id is required")
	}
	if info.ImportedAt.IsZero() {
		info.ImportedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.CreateImport(ctx, DatasetImport{
		ID:         info.ID,
		Source:     info.Source,
		Records:    int64(len(records)),
		MinYear:    int64(info.MinYear),
		MaxYear:    int64(info.MaxYear),
		ImportedAt: info.ImportedAt.UTC().Format(timeLayout),
	}); err != nil {
		return fmt.Errorf("create import %s: %w", info.ID, err)
	}

	for _, rec := range records {
		if err := q.InsertRecord(ctx, InsertRecordParams{
			ImportID:       info.ID,
			CountryName:    rec.CountryName,
			CountryCode:    rec.CountryCode,
			Year:           int64(rec.Year),
			ExpenditureUsd: rec.ExpenditureUSD,
		}); err != nil {
			return fmt.Errorf("insert record %s/%d: %w", rec.CountryCode, rec.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import %s: %w", info.ID, err)
	}

	slog.InfoContext(ctx, "Dataset import saved to SQLite", applog.FieldComponent, applog.ComponentStorage,
		"import_id", info.ID,
		"source", info.Source,
		"records", len(records))
	return nil
}

// LatestImport returns the most recent import.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (ImportInfo, error) {
	row, err := r.queries.GetLatestImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportInfo{}, ErrNoImports
	}
	if err != nil {
		return ImportInfo{}, fmt.Errorf("get latest import: %w", err)
	}
	return toImportInfo(row)
}

// GetImport returns one import by id, ErrNoImports when it is unknown.
func (r *SQLiteRepository) GetImport(ctx context.Context, id string) (ImportInfo, error) {
	row, err := r.queries.GetImport(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportInfo{}, fmt.Errorf("%w: id %s", ErrNoImports, id)
	}
	if err != nil {
		return ImportInfo{}, fmt.Errorf("get import %s: %w", id, err)
	}
	return toImportInfo(row)
}

// ListImports returns up to limit imports, newest first.
func (r *SQLiteRepository) ListImports(ctx context.Context, limit int) ([]ImportInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.queries.ListImports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	out := make([]ImportInfo, 0, len(rows))
	for _, row := range rows {
		info, err := toImportInfo(row)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// ListRecords returns the records of one import in insertion order.
func (r *SQLiteRepository) ListRecords(ctx context.Context, importID string) ([]core.ExpenditureRecord, error) {
	rows, err := r.queries.ListRecordsByImport(ctx, importID)
	if err != nil {
		return nil, fmt.Errorf("list records for import %s: %w", importID, err)
	}
	out := make([]core.ExpenditureRecord, len(rows))
	for i, row := range rows {
		out[i] = core.ExpenditureRecord{
			CountryName:    row.CountryName,
			CountryCode:    row.CountryCode,
			Year:           int(row.Year),
			ExpenditureUSD: row.ExpenditureUsd,
		}
	}
	return out, nil
}

// PruneImports keeps the newest keep imports and deletes the rest.
func (r *SQLiteRepository) PruneImports(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteRecordsBeyond(ctx, int64(keep)); err != nil {
		return 0, fmt.Errorf("delete old records: %w", err)
	}
	n, err := q.DeleteImportsBeyond(ctx, int64(keep))
	if err != nil {
		return 0, fmt.Errorf("delete old imports: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned old dataset imports", applog.FieldComponent, applog.ComponentStorage, "deleted", n, "kept", keep)
	}
	return int(n), nil
}

func toImportInfo(row DatasetImport) (ImportInfo, error) {
	at, err := time.Parse(timeLayout, row.ImportedAt)
	if err != nil {
		return ImportInfo{}, fmt.Errorf("parse imported_at of %s: %w", row.ID, err)
	}
	return ImportInfo{
		ID:         row.ID,
		Source:     row.Source,
		Records:    int(row.Records),
		MinYear:    int(row.MinYear),
		MaxYear:    int(row.MaxYear),
		ImportedAt: at,
	}, nil
}
