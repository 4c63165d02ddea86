package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRow is the single row holding the snapshot in SQL backends.
type SnapshotRow struct {
	Name    string         `gorm:"primaryKey;column:name;size:128"`
	Payload datatypes.JSON `gorm:"column:payload"`
	SavedAt time.Time      `gorm:"column:saved_at"`
}

func (SnapshotRow) TableName() string {
	return "dock_snapshots"
}

// GormStore works with any gorm dialect; the service uses postgres or sqlite.
type GormStore struct {
	db  *gorm.DB
	key string
}

func NewGormStore(db *gorm.DB, key string) *GormStore {
	if key == "" {
		key = DefaultKey
	}
	return &GormStore{db: db, key: key}
}

func (g *GormStore) AutoMigrate() error {
	return g.db.AutoMigrate(&SnapshotRow{})
}

func (g *GormStore) Load(ctx context.Context) (*Snapshot, error) {
	var row SnapshotRow
	err := g.db.WithContext(ctx).Where("name = ?", g.key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(row.Payload)
}

func (g *GormStore) Save(ctx context.Context, snap Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	row := SnapshotRow{Name: g.key, Payload: datatypes.JSON(payload), SavedAt: snap.LastSaved}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "saved_at"}),
	}).Create(&row).Error
}
