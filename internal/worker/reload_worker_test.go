package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"healthdash/internal/amqp"
	"healthdash/internal/core"
	"healthdash/internal/services"
)

type fakeReloader struct {
	current *services.Snapshot
	next    services.Snapshot
	err     error
	reloads int
}

func (f *fakeReloader) Snapshot() (services.Snapshot, error) {
	if f.current == nil {
		return services.Snapshot{}, services.ErrNotLoaded
	}
	return *f.current, nil
}

func (f *fakeReloader) Reload(context.Context) (services.Snapshot, error) {
	f.reloads++
	if f.err != nil {
		return services.Snapshot{}, f.err
	}
	f.current = &f.next
	return f.next, nil
}

func snapshot(importID string) services.Snapshot {
	return services.Snapshot{Table: core.NewTable(nil), Info: services.LoadInfo{ImportID: importID}}
}

func TestHandleDatasetImported(t *testing.T) {
	tests := []struct {
		name        string
		current     *services.Snapshot
		next        services.Snapshot
		reloadErr   error
		msgID       string
		wantReloads int
		wantErr     bool
	}{
		{
			name:        "not loaded yet",
			next:        snapshot("imp-1"),
			msgID:       "imp-1",
			wantReloads: 1,
		},
		{
			name:        "newer import",
			current:     &services.Snapshot{Info: services.LoadInfo{ImportID: "imp-1"}},
			next:        snapshot("imp-2"),
			msgID:       "imp-2",
			wantReloads: 1,
		},
		{
			name:        "already serving announced import",
			current:     &services.Snapshot{Info: services.LoadInfo{ImportID: "imp-2"}},
			msgID:       "imp-2",
			wantReloads: 0,
		},
		{
			name:        "transient reload failure is requeued",
			current:     &services.Snapshot{Info: services.LoadInfo{ImportID: "imp-1"}},
			reloadErr:   errors.New("database is locked"),
			msgID:       "imp-2",
			wantReloads: 1,
			wantErr:     true,
		},
		{
			name:        "malformed import is acknowledged",
			current:     &services.Snapshot{Info: services.LoadInfo{ImportID: "imp-1"}},
			reloadErr:   fmt.Errorf("reload dataset: %w: import imp-2: year must have four digits", core.ErrMalformedInput),
			msgID:       "imp-2",
			wantReloads: 1,
		},
		{
			name:        "empty import is acknowledged",
			reloadErr:   fmt.Errorf("reload dataset: %w: import imp-2 holds no records", core.ErrEmptyResult),
			msgID:       "imp-2",
			wantReloads: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeReloader{current: tt.current, next: tt.next, err: tt.reloadErr}
			w := NewReloadWorker(fake)

			err := w.HandleDatasetImported(context.Background(), amqp.NewDatasetImportedMessage(tt.msgID, "test", 3, 2019, 2020))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, tt.reloadErr) {
				t.Fatalf("error should wrap %v, got %v", tt.reloadErr, err)
			}
			if fake.reloads != tt.wantReloads {
				t.Fatalf("reloads = %d, want %d", fake.reloads, tt.wantReloads)
			}
		})
	}
}

func TestHandleDatasetImported_PermanentFailureKeepsCurrent(t *testing.T) {
	current := snapshot("imp-1")
	fake := &fakeReloader{current: &current, err: fmt.Errorf("reload dataset: %w", core.ErrMalformedInput)}
	w := NewReloadWorker(fake)
	msg := amqp.NewDatasetImportedMessage("imp-2", "test", 3, 2019, 2020)

	// redelivery of the same message must not fail either
	for i := 0; i < 3; i++ {
		if err := w.HandleDatasetImported(context.Background(), msg); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	snap, err := fake.Snapshot()
	if err != nil || snap.Info.ImportID != "imp-1" {
		t.Fatalf("current dataset changed: %+v, %v", snap.Info, err)
	}
}
