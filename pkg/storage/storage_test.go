package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/muelle-planner/platform/pkg/common/config"
	"github.com/muelle-planner/platform/pkg/common/database"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/schema"
)

func init() {
	logger.Silence()
}

func sampleSnapshot() Snapshot {
	return NewSnapshot(dock.State{
		Records: []dock.Record{
			{ID: 1, Carrier: "EWALS", Destination: "PB-ZM", Status: dock.StatusPending, Dock: "316"},
			{ID: 4, Carrier: "ACME", Destination: "SEVILLA", Status: dock.StatusAccepted, DockStatus: "*"},
		},
		Variant: schema.Variant4,
		NextID:  5,
	}, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
}

func exerciseStore(t *testing.T, store SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	snap, err := store.Load(ctx)
	if err != nil || snap != nil {
		t.Fatalf("expected empty store, got %+v, %v", snap, err)
	}

	want := sampleSnapshot()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	want.NextID = 6
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Variant != schema.Variant4 || got.NextID != 6 || len(got.Records) != 2 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if got.Records[1] != want.Records[1] || !got.LastSaved.Equal(want.LastSaved) {
		t.Fatalf("snapshot changed: %+v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "dock-planner.json")
	exerciseStore(t, NewFileStore(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestFileStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dock-planner.json")
	if err := os.WriteFile(path, []byte(`{"records":`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"records":[],"variant":"9"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot for bad variant, got %v", err)
	}
}

func TestGormStoreSQLite(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer database.CloseGorm(db)

	store := NewGormStore(db, "")
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	exerciseStore(t, store)

	var count int64
	db.Model(&SnapshotRow{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single snapshot row, got %d", count)
	}
}

func TestOpen(t *testing.T) {
	cfg := &config.Config{SnapshotBackend: BackendFile, SnapshotFile: filepath.Join(t.TempDir(), "s.json")}
	store, closeFn, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected file store, got %T", store)
	}

	cfg = &config.Config{SnapshotBackend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}
	store, closeSQL, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer closeSQL()
	exerciseStore(t, store)

	if _, _, err := Open(context.Background(), &config.Config{SnapshotBackend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
