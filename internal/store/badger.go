// Package store provides the client-scoped local persistence backing
// working-field edits, implemented on BadgerDB.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/port"
)

// BadgerStore implements port.LocalStore on an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (or creates) the badger database at cfg.DataDir. With
// cfg.InMemory set, nothing touches disk; edits then live only as long as
// the process.
func Open(cfg config.StorageConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.DataDir).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

var _ port.LocalStore = (*BadgerStore)(nil)

// Get returns the value for key, or domain.ErrNotFound.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, overwriting any previous value.
func (s *BadgerStore) Put(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
