package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// SequenceCounter is one row per (prefix, period)
type SequenceCounter struct {
	Prefix    string `gorm:"primaryKey;size:16"`
	Period    string `gorm:"primaryKey;size:4"`
	Value     int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// CounterStore keeps sequence counters in Postgres. Each update locks the
// counter row with SELECT ... FOR UPDATE inside a transaction, so concurrent
// processes sharing the database serialize on the row
type CounterStore struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the counter table
func Open(dsn string) (*CounterStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewCounterStore(db)
}

// NewCounterStore wraps an open connection and migrates the counter table
func NewCounterStore(db *gorm.DB) (*CounterStore, error) {
	if err := db.AutoMigrate(&SequenceCounter{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sequence counters: %w", err)
	}
	return &CounterStore{db: db}, nil
}

// Verify interface compliance
var _ repositories.CounterStore = (*CounterStore)(nil)

// Close closes the underlying connection pool
func (s *CounterStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Increment raises the counter by one and returns the new value
func (s *CounterStore) Increment(ctx context.Context, key repositories.CounterKey) (int64, error) {
	var next int64
	err := s.locked(ctx, key, func(tx *gorm.DB, counter *SequenceCounter) error {
		next = counter.Value + 1
		return tx.Model(counter).Update("value", next).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return next, nil
}

// RaiseTo sets the counter to max(current, value)
func (s *CounterStore) RaiseTo(ctx context.Context, key repositories.CounterKey, value int64) error {
	err := s.locked(ctx, key, func(tx *gorm.DB, counter *SequenceCounter) error {
		if value <= counter.Value {
			return nil
		}
		return tx.Model(counter).Update("value", value).Error
	})
	if err != nil {
		return fmt.Errorf("failed to raise counter %s: %w", key, err)
	}
	return nil
}

// Current returns the highest issued value, zero when unused
func (s *CounterStore) Current(ctx context.Context, key repositories.CounterKey) (int64, error) {
	var counters []SequenceCounter
	err := s.db.WithContext(ctx).
		Where("prefix = ? AND period = ?", key.Prefix, key.Period).
		Limit(1).
		Find(&counters).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	if len(counters) == 0 {
		return 0, nil
	}
	return counters[0].Value, nil
}

// Reset deletes the counter row
func (s *CounterStore) Reset(ctx context.Context, key repositories.CounterKey) error {
	err := s.db.WithContext(ctx).
		Where("prefix = ? AND period = ?", key.Prefix, key.Period).
		Delete(&SequenceCounter{}).Error
	if err != nil {
		return fmt.Errorf("failed to reset counter %s: %w", key, err)
	}
	return nil
}

// locked runs fn with the counter row for key created if missing and locked
// for the duration of the transaction
func (s *CounterStore) locked(ctx context.Context, key repositories.CounterKey, fn func(tx *gorm.DB, counter *SequenceCounter) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := SequenceCounter{Prefix: key.Prefix, Period: key.Period}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var counter SequenceCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prefix = ? AND period = ?", key.Prefix, key.Period).
			First(&counter).Error
		if err != nil {
			return err
		}
		return fn(tx, &counter)
	})
}
