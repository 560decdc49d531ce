// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

// QueueRepository implements storage.QueueRepository using BadgerDB.
// Each entry lives under exactly one state prefix; a state transition deletes
// the old key and writes the new one in the same transaction.
type QueueRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.QueueRepository = (*QueueRepository)(nil)

// NewQueueRepository creates a queue repository on the given backend.
func NewQueueRepository(backend *Backend) *QueueRepository {
	return &QueueRepository{
		backend: backend,
		logger:  slog.Default().With("component", "queue_repository"),
	}
}

// Close releases repository resources. The backend itself is closed by its owner.
func (r *QueueRepository) Close() error {
	return nil
}

// getEntry reads and deserializes the entry at key within tx.
// Returns storage.ErrNotFound when the key is absent.
func getEntry(tx *badger.Txn, key []byte) (*core.QueueEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var entry *core.QueueEntry
	err = item.Value(func(val []byte) error {
		entry, err = storage.UnmarshalQueueEntry(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// setEntry serializes entry and writes it under its state key within tx.
func setEntry(tx *badger.Txn, entry *core.QueueEntry) error {
	if err := core.ValidateQueueEntry(entry); err != nil {
		return err
	}
	return tx.Set(makeQueueKey(entry.State, entry.DocID), storage.MarshalQueueEntry(entry))
}

// hasKey reports whether key exists within tx.
func hasKey(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Enqueue adds docID to the pending list. Entries already pending, processing
// or completed are left untouched; a failed entry is moved back to pending
// with a fresh attempt counter.
func (r *QueueRepository) Enqueue(ctx context.Context, docID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if docID == "" {
		return core.ErrEmptyDocumentID
	}

	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		for _, state := range []core.QueueState{core.StatePending, core.StateProcessing, core.StateCompleted} {
			exists, err := hasKey(tx, makeQueueKey(state, docID))
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
		}

		now := time.Now().UTC()
		entry := &core.QueueEntry{
			DocID:      docID,
			State:      core.StatePending,
			Attempts:   0,
			EnqueuedAt: now,
			UpdatedAt:  now,
		}

		failedKey := makeQueueKey(core.StateFailed, docID)
		wasFailed, err := hasKey(tx, failedKey)
		if err != nil {
			return err
		}
		if wasFailed {
			if err := tx.Delete(failedKey); err != nil {
				return err
			}
			r.logger.Info("re-enqueued failed document", "doc_id", docID)
		}

		if err := setEntry(tx, entry); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", docID, err)
	}
	return nil
}

// Reenqueue forces docID back to pending with a fresh attempt counter,
// deleting whatever state it currently holds — completed included. Used by
// explicit re-ingestion; Enqueue leaves terminal successes alone.
func (r *QueueRepository) Reenqueue(ctx context.Context, docID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if docID == "" {
		return core.ErrEmptyDocumentID
	}

	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		for _, state := range []core.QueueState{core.StatePending, core.StateProcessing, core.StateCompleted, core.StateFailed} {
			if err := tx.Delete(makeQueueKey(state, docID)); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		entry := &core.QueueEntry{
			DocID:      docID,
			State:      core.StatePending,
			Attempts:   0,
			EnqueuedAt: now,
			UpdatedAt:  now,
		}
		if err := setEntry(tx, entry); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to re-enqueue %s: %w", docID, err)
	}

	r.logger.Info("document re-enqueued", "doc_id", docID)
	return nil
}

// Dequeue moves exactly one pending entry to processing and returns it.
// Entries are taken in sorted id order. Returns storage.ErrQueueEmpty when
// nothing is pending.
func (r *QueueRepository) Dequeue(ctx context.Context) (*core.QueueEntry, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var entry *core.QueueEntry
	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		prefix := queueScanPrefix(core.StatePending)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		var pendingKey []byte
		it.Rewind()
		if it.ValidForPrefix(prefix) {
			pendingKey = it.Item().KeyCopy(nil)
		}
		it.Close()

		if pendingKey == nil {
			return storage.ErrQueueEmpty
		}

		e, err := getEntry(tx, pendingKey)
		if err != nil {
			return err
		}
		if err := tx.Delete(pendingKey); err != nil {
			return err
		}

		e.State = core.StateProcessing
		e.Attempts++
		e.UpdatedAt = time.Now().UTC()
		if err := setEntry(tx, e); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrQueueEmpty) {
			return nil, storage.ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}
	return entry, nil
}

// moveToTerminal removes docID from the non-terminal lists and upserts it
// into the given terminal state.
func (r *QueueRepository) moveToTerminal(docID string, terminal core.QueueState) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if docID == "" {
		return core.ErrEmptyDocumentID
	}

	return r.backend.WithWriteTx(func(tx *badger.Txn) error {
		var prior *core.QueueEntry
		for _, state := range []core.QueueState{core.StateProcessing, core.StatePending, core.StateCompleted, core.StateFailed} {
			if state == terminal {
				continue
			}
			key := makeQueueKey(state, docID)
			e, err := getEntry(tx, key)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				return err
			}
			if prior == nil {
				prior = e
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		entry := &core.QueueEntry{
			DocID:      docID,
			State:      terminal,
			EnqueuedAt: now,
			UpdatedAt:  now,
		}
		if prior != nil {
			entry.Attempts = prior.Attempts
			entry.EnqueuedAt = prior.EnqueuedAt
		}
		if err := setEntry(tx, entry); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Complete moves docID into the completed list.
func (r *QueueRepository) Complete(ctx context.Context, docID string) error {
	if err := r.moveToTerminal(docID, core.StateCompleted); err != nil {
		return fmt.Errorf("failed to complete %s: %w", docID, err)
	}
	return nil
}

// Fail moves docID into the failed list.
func (r *QueueRepository) Fail(ctx context.Context, docID string) error {
	if err := r.moveToTerminal(docID, core.StateFailed); err != nil {
		return fmt.Errorf("failed to mark %s failed: %w", docID, err)
	}
	return nil
}

// Requeue moves docID from processing back to pending, keeping its attempt
// counter. A docID not currently processing is upserted as pending.
func (r *QueueRepository) Requeue(ctx context.Context, docID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if docID == "" {
		return core.ErrEmptyDocumentID
	}

	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		processingKey := makeQueueKey(core.StateProcessing, docID)
		entry, err := getEntry(tx, processingKey)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			now := time.Now().UTC()
			entry = &core.QueueEntry{
				DocID:      docID,
				EnqueuedAt: now,
				UpdatedAt:  now,
			}
		} else {
			if err := tx.Delete(processingKey); err != nil {
				return err
			}
		}

		entry.State = core.StatePending
		entry.UpdatedAt = time.Now().UTC()
		if err := setEntry(tx, entry); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to requeue %s: %w", docID, err)
	}
	return nil
}

// Recover conflates every processing entry back to pending and returns the
// number moved. Called once at startup to reclaim entries orphaned by a crash.
func (r *QueueRepository) Recover(ctx context.Context) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	recovered := 0
	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		prefix := queueScanPrefix(core.StateProcessing)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		var orphaned []*core.QueueEntry
		it := tx.NewIterator(opts)
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var entry *core.QueueEntry
			err := it.Item().Value(func(val []byte) error {
				var uerr error
				entry, uerr = storage.UnmarshalQueueEntry(val)
				return uerr
			})
			if err != nil {
				it.Close()
				return err
			}
			orphaned = append(orphaned, entry)
		}
		it.Close()

		now := time.Now().UTC()
		for _, entry := range orphaned {
			if err := tx.Delete(makeQueueKey(core.StateProcessing, entry.DocID)); err != nil {
				return err
			}
			entry.State = core.StatePending
			entry.UpdatedAt = now
			if err := setEntry(tx, entry); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		recovered = len(orphaned)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to recover queue: %w", err)
	}
	if recovered > 0 {
		r.logger.Info("recovered orphaned entries", "count", recovered)
	}
	return recovered, nil
}

// listState returns the sorted document ids under one state prefix.
// Badger iterates keys in byte order, which is already the sort we want.
func (r *QueueRepository) listState(tx *badger.Txn, state core.QueueState) []string {
	prefix := queueScanPrefix(state)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	var ids []string
	it := tx.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, docIDFromKey(it.Item().Key(), prefix))
	}
	return ids
}

// Counts returns the number of entries in each state.
func (r *QueueRepository) Counts(ctx context.Context) (map[core.QueueState]int, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	counts := make(map[core.QueueState]int, 4)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, state := range []core.QueueState{core.StatePending, core.StateProcessing, core.StateCompleted, core.StateFailed} {
			counts[state] = len(r.listState(tx, state))
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return counts, nil
}

// List returns the sorted document ids currently in the given state.
func (r *QueueRepository) List(ctx context.Context, state core.QueueState) ([]string, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := core.ValidateQueueState(state); err != nil {
		return nil, err
	}

	var ids []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids = r.listState(tx, state)
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	return ids, nil
}
