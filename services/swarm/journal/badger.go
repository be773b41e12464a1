// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces journal records inside the database.
var keyPrefix = []byte("batch/")

// Badger is a Journal backed by an embedded BadgerDB.
//
// # Description
//
// Records are keyed by completion time (big-endian nanoseconds) plus the
// batch ID, so Badger's lexicographic key order is chronological order and
// Recent is a single reverse iteration. Values are JSON-encoded Records.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type Badger struct {
	db *badger.DB
}

// Open opens (or creates) a persistent journal at the directory path.
func Open(path string) (*Badger, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create journal directory %q: %w", path, err)
	}
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	return &Badger{db: db}, nil
}

// OpenInMemory opens a non-persistent journal, for tests.
func OpenInMemory() (*Badger, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory journal: %w", err)
	}
	return &Badger{db: db}, nil
}

// Append persists one record.
func (b *Badger) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %q: %w", rec.BatchID, err)
	}
	key := recordKey(rec)
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("append record %q: %w", rec.BatchID, err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (b *Badger) Recent(ctx context.Context, n int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts past the prefix range
		seek := append(append([]byte{}, keyPrefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(keyPrefix) && len(out) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode record: %w", err)
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// recordKey builds the chronological key for a record.
func recordKey(rec Record) []byte {
	key := make([]byte, 0, len(keyPrefix)+8+len(rec.BatchID))
	key = append(key, keyPrefix...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(rec.Time.UnixNano()))
	key = append(key, ts[:]...)
	key = append(key, rec.BatchID...)
	return key
}

var _ Journal = (*Badger)(nil)
