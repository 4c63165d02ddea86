package storage

import (
	"context"
	"fmt"

	"github.com/muelle-planner/platform/pkg/common/config"
	"github.com/muelle-planner/platform/pkg/common/database"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"gorm.io/gorm"
)

// Backend names accepted by SNAPSHOT_BACKEND.
const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
)

// Open builds the configured snapshot store. The returned close function is
// never nil.
func Open(ctx context.Context, cfg *config.Config) (SnapshotStore, func() error, error) {
	noop := func() error { return nil }
	key := cfg.SnapshotKey
	log := logger.Log.WithField("backend", cfg.SnapshotBackend)

	switch cfg.SnapshotBackend {
	case BackendNone, "":
		log.Info("snapshot persistence disabled")
		return NewMemoryStore(), noop, nil

	case BackendFile:
		log.WithField("path", cfg.SnapshotFile).Info("snapshot backend ready")
		return NewFileStore(cfg.SnapshotFile), noop, nil

	case BackendRedis:
		client, err := database.OpenRedis(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		log.Info("snapshot backend ready")
		return NewRedisStore(client, key), client.Close, nil

	case BackendPostgres, BackendSQLite:
		db, err := openSQL(cfg)
		if err != nil {
			return nil, noop, err
		}
		store := NewGormStore(db, key)
		if err := store.AutoMigrate(); err != nil {
			_ = database.CloseGorm(db)
			return nil, noop, fmt.Errorf("migrating snapshot table: %w", err)
		}
		log.Info("snapshot backend ready")
		return store, func() error { return database.CloseGorm(db) }, nil

	case BackendMongo:
		client, err := database.OpenMongo(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		log.Info("snapshot backend ready")
		return NewMongoStore(client.Database(cfg.MongoDB), key), func() error {
			return client.Disconnect(context.Background())
		}, nil
	}
	return nil, noop, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
}

func openSQL(cfg *config.Config) (*gorm.DB, error) {
	if cfg.SnapshotBackend == BackendSQLite {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.OpenPostgres(cfg)
}
