package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/vsinha/storereq/pkg/domain/repositories"
)

const (
	keyPrefix  = "counter:"
	maxRetries = 16
)

// CounterStore keeps sequence counters in Badger. Every update runs in its
// own read-write transaction; conflicting transactions are retried
type CounterStore struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database at path
func Open(path string) (*CounterStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return NewCounterStore(db), nil
}

// NewCounterStore wraps an open Badger database
func NewCounterStore(db *badger.DB) *CounterStore {
	return &CounterStore{db: db}
}

// Verify interface compliance
var _ repositories.CounterStore = (*CounterStore)(nil)

// Close closes the underlying database
func (s *CounterStore) Close() error {
	return s.db.Close()
}

// Increment raises the counter by one and returns the new value
func (s *CounterStore) Increment(ctx context.Context, key repositories.CounterKey) (int64, error) {
	var next int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		current, err := read(txn, key)
		if err != nil {
			return err
		}
		next = current + 1
		return write(txn, key, next)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// RaiseTo sets the counter to max(current, value)
func (s *CounterStore) RaiseTo(ctx context.Context, key repositories.CounterKey, value int64) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		current, err := read(txn, key)
		if err != nil {
			return err
		}
		if value <= current {
			return nil
		}
		return write(txn, key, value)
	})
}

// Current returns the highest issued value, zero when unused
func (s *CounterStore) Current(ctx context.Context, key repositories.CounterKey) (int64, error) {
	var current int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		current, err = read(txn, key)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return current, nil
}

// Reset removes the counter
func (s *CounterStore) Reset(ctx context.Context, key repositories.CounterKey) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(storageKey(key))
	})
}

func (s *CounterStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("counter update failed: %w", err)
		}
		return nil
	}
	return fmt.Errorf("counter update failed after %d conflicting attempts: %w", maxRetries, badger.ErrConflict)
}

func read(txn *badger.Txn, key repositories.CounterKey) (int64, error) {
	item, err := txn.Get(storageKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var value int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt counter %s: %d bytes", key, len(val))
		}
		value = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return value, err
}

func write(txn *badger.Txn, key repositories.CounterKey, value int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return txn.Set(storageKey(key), buf)
}

func storageKey(key repositories.CounterKey) []byte {
	return []byte(keyPrefix + key.String())
}
