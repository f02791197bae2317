package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type DatasetImport struct {
	ID         string
	Source     string
	Records    int64
	MinYear    int64
	MaxYear    int64
	ImportedAt string
}

type ExpenditureRow struct {
	CountryName    string
	CountryCode    string
	Year           int64
	ExpenditureUsd float64
}

const createImport = `INSERT INTO dataset_imports (id, source, records, min_year, max_year, imported_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateImport(ctx context.Context, arg DatasetImport) error {
	_, err := q.db.ExecContext(ctx, createImport,
		arg.ID, arg.Source, arg.Records, arg.MinYear, arg.MaxYear, arg.ImportedAt)
	return err
}

const insertRecord = `INSERT INTO expenditure_records (import_id, country_name, country_code, year, expenditure_usd)
VALUES (?, ?, ?, ?, ?)`

type InsertRecordParams struct {
	ImportID       string
	CountryName    string
	CountryCode    string
	Year           int64
	ExpenditureUsd float64
}

func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) error {
	_, err := q.db.ExecContext(ctx, insertRecord,
		arg.ImportID, arg.CountryName, arg.CountryCode, arg.Year, arg.ExpenditureUsd)
	return err
}

const importColumns = `id, source, records, min_year, max_year, imported_at`

const getLatestImport = `SELECT ` + importColumns + ` FROM dataset_imports
ORDER BY imported_at DESC, rowid DESC LIMIT 1`

func (q *Queries) GetLatestImport(ctx context.Context) (DatasetImport, error) {
	row := q.db.QueryRowContext(ctx, getLatestImport)
	var i DatasetImport
	err := row.Scan(&i.ID, &i.Source, &i.Records, &i.MinYear, &i.MaxYear, &i.ImportedAt)
	return i, err
}

const getImport = `SELECT ` + importColumns + ` FROM dataset_imports WHERE id = ?`

func (q *Queries) GetImport(ctx context.Context, id string) (DatasetImport, error) {
	row := q.db.QueryRowContext(ctx, getImport, id)
	var i DatasetImport
	err := row.Scan(&i.ID, &i.Source, &i.Records, &i.MinYear, &i.MaxYear, &i.ImportedAt)
	return i, err
}

const listImports = `SELECT ` + importColumns + ` FROM dataset_imports
ORDER BY imported_at DESC, rowid DESC LIMIT ?`

func (q *Queries) ListImports(ctx context.Context, limit int64) ([]DatasetImport, error) {
	rows, err := q.db.QueryContext(ctx, listImports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DatasetImport
	for rows.Next() {
		var i DatasetImport
		if err := rows.Scan(&i.ID, &i.Source, &i.Records, &i.MinYear, &i.MaxYear, &i.ImportedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecordsByImport = `SELECT country_name, country_code, year, expenditure_usd
FROM expenditure_records WHERE import_id = ? ORDER BY id`

func (q *Queries) ListRecordsByImport(ctx context.Context, importID string) ([]ExpenditureRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecordsByImport, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenditureRow
	for rows.Next() {
		var i ExpenditureRow
		if err := rows.Scan(&i.CountryName, &i.CountryCode, &i.Year, &i.ExpenditureUsd); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const keptImports = `SELECT id FROM dataset_imports ORDER BY imported_at DESC, rowid DESC LIMIT ?`

const deleteRecordsBeyond = `DELETE FROM expenditure_records WHERE import_id NOT IN (` + keptImports + `)`

func (q *Queries) DeleteRecordsBeyond(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(ctx, deleteRecordsBeyond, keep)
	return err
}

const deleteImportsBeyond = `DELETE FROM dataset_imports WHERE id NOT IN (` + keptImports + `)`

func (q *Queries) DeleteImportsBeyond(ctx context.Context, keep int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteImportsBeyond, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
