package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"healthdash/internal/core"
	applog "healthdash/internal/log"
)

// ErrNotLoaded is returned by queries issued before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// LoadInfo describes where the current table came from.
type LoadInfo struct {
	Source   string    `json:"source"`
	ImportID string    `json:"import_id,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Snapshot pairs an immutable table with its provenance.
type Snapshot struct {
	Table *core.Table
	Info  LoadInfo
}

// Loader produces a fresh table from some backend.
type Loader interface {
	Load(ctx context.Context) (*core.Table, LoadInfo, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*core.Table, LoadInfo, error)

func (f LoaderFunc) Load(ctx context.Context) (*core.Table, LoadInfo, error) {
	return f(ctx)
}

// DatasetService owns the table every view reads from. Readers never block:
// a reload builds a new table and swaps the pointer.
type DatasetService struct {
	loader  Loader
	current atomic.Pointer[Snapshot]
	group   singleflight.Group

	mu    sync.Mutex
	hooks []func(Snapshot)
}

func NewDatasetService(loader Loader) *DatasetService {
	return &DatasetService{loader: loader}
}

// OnReload registers fn to run after every successful (re)load.
func (s *DatasetService) OnReload(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Reload fetches a new table. Concurrent calls share one load. On failure
// the previous table stays in place.
func (s *DatasetService) Reload(ctx context.Context) (Snapshot, error) {
	v, err, shared := s.group.Do("reload", func() (interface{}, error) {
		start := time.Now()
		table, info, err := s.loader.Load(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		if info.LoadedAt.IsZero() {
			info.LoadedAt = time.Now()
		}
		snap := Snapshot{Table: table, Info: info}
		s.current.Store(&snap)

		minYear, maxYear, _ := table.YearRange()
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogDatasetLoaded(ctx, applog.OpReload,
			info.Source, table.Len(), len(table.CountryNames()), minYear, maxYear)
		slog.DebugContext(ctx, "Dataset swap completed",
			applog.FieldComponent, applog.ComponentDataset,
			applog.FieldImportID, info.ImportID,
			applog.FieldDuration, time.Since(start).Milliseconds())

		s.mu.Lock()
		hooks := append([]func(Snapshot){}, s.hooks...)
		s.mu.Unlock()
		for _, fn := range hooks {
			fn(snap)
		}
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("reload dataset: %w", err)
	}
	if shared {
		slog.DebugContext(ctx, "Joined in-flight dataset reload", applog.FieldComponent, applog.ComponentDataset)
	}
	return v.(Snapshot), nil
}

// Current returns the loaded table or ErrNotLoaded.
func (s *DatasetService) Current() (*core.Table, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Table, nil
}

// Snapshot returns the loaded table with its provenance.
func (s *DatasetService) Snapshot() (Snapshot, error) {
	p := s.current.Load()
	if p == nil {
		return Snapshot{}, ErrNotLoaded
	}
	return *p, nil
}

// Loaded reports whether a table is available.
func (s *DatasetService) Loaded() bool {
	return s.current.Load() != nil
}
