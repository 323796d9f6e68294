package gapstore

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store on top of an embedded Badger database, for
// durable cross-restart hit history.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if necessary) a Badger database at path for
// storing confirmed PoW hits.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // gaplog, not badger's own logger, reports store errors.

	db, err := badger.Open(opts)
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Cannot acquire directory lock") ||
			strings.Contains(errMsg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("database at %s is locked by another process (is another gapsieved instance running?): %w", path, err)
		}
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// PutHit persists h under its discovery-time key.
func (b *BadgerStore) PutHit(h Hit) error {
	val, err := marshalHit(h)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(hitKey(h), val)
	})
	if err != nil {
		return fmt.Errorf("badger put hit: %w", err)
	}
	return nil
}

// ForEachHit replays every stored hit in ascending discovery-time order.
func (b *BadgerStore) ForEachHit(fn func(Hit) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = hitPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(hitPrefix); it.ValidForPrefix(hitPrefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("badger read hit: %w", err)
			}
			h, err := unmarshalHit(val)
			if err != nil {
				return err
			}
			if err := fn(h); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
