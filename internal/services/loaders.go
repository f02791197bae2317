package services

import (
	"context"
	"fmt"
	"time"

	"healthdash/internal/core"
	"healthdash/internal/source"
	"healthdash/internal/storage"
)

// SourceLoader reads a wide table from a source and reshapes it.
type SourceLoader struct {
	Source source.Source
}

func (l SourceLoader) Load(ctx context.Context) (*core.Table, LoadInfo, error) {
	raw, err := l.Source.Fetch(ctx)
	if err != nil {
		return nil, LoadInfo{}, fmt.Errorf("fetch %s: %w", l.Source.Name(), err)
	}
	table, err := core.Load(raw)
	if err != nil {
		return nil, LoadInfo{}, fmt.Errorf("load %s: %w", l.Source.Name(), err)
	}
	return table, LoadInfo{Source: l.Source.Name(), LoadedAt: time.Now()}, nil
}

// RecordStore is the read side of the import repository.
type RecordStore interface {
	LatestImport(ctx context.Context) (storage.ImportInfo, error)
	ListRecords(ctx context.Context, importID string) ([]core.ExpenditureRecord, error)
}

// StoreLoader loads the most recent import from the database.
type StoreLoader struct {
	Store RecordStore
}

func (l StoreLoader) Load(ctx context.Context) (*core.Table, LoadInfo, error) {
	info, err := l.Store.LatestImport(ctx)
	if err != nil {
		return nil, LoadInfo{}, fmt.Errorf("latest import: %w", err)
	}
	records, err := l.Store.ListRecords(ctx, info.ID)
	if err != nil {
		return nil, LoadInfo{}, err
	}
	if len(records) == 0 {
		return nil, LoadInfo{}, fmt.Errorf("%w: import %s holds no records", core.ErrEmptyResult, info.ID)
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, LoadInfo{}, fmt.Errorf("%w: import %s: %v", core.ErrMalformedInput, info.ID, err)
		}
	}
	return core.NewTable(records), LoadInfo{
		Source:   info.Source,
		ImportID: info.ID,
		LoadedAt: time.Now(),
	}, nil
}
