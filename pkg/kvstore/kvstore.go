package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the durable local store contract: opaque structured records keyed
// by name, surviving process restarts. Callers always read then fully rewrite
// a record; there is no field-level persistence.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KVRecord is the single-table schema behind the store.
type KVRecord struct {
	RecordKey   string    `gorm:"column:record_key;primaryKey"`
	RecordValue string    `gorm:"column:record_value;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

// TableName pins the goose-managed table.
func (KVRecord) TableName() string {
	return "kv_records"
}

type store struct {
	db *gorm.DB
}

// New returns a Store bound to the provided database.
func New(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var record KVRecord
	err := s.db.WithContext(ctx).First(&record, "record_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(record.RecordValue), true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	record := KVRecord{
		RecordKey:   key,
		RecordValue: string(value),
		UpdatedAt:   time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"record_value", "updated_at"}),
		}).
		Create(&record).Error
}
