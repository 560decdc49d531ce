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
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

// CheckpointRepository implements storage.CheckpointRepository using BadgerDB.
// The processed and skipped sets live under disjoint key prefixes; Mark keeps
// them disjoint by deleting from one while writing to the other in a single
// transaction.
type CheckpointRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a checkpoint repository on the given backend.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
		logger:  slog.Default().With("component", "checkpoint_repository"),
	}
}

// Close releases repository resources. The backend itself is closed by its owner.
func (r *CheckpointRepository) Close() error {
	return nil
}

// IsProcessed reports whether docID is in the processed set.
func (r *CheckpointRepository) IsProcessed(ctx context.Context, docID string) (bool, error) {
	if r.backend.IsClosed() {
		return false, storage.ErrStorageClosed
	}
	if docID == "" {
		return false, core.ErrEmptyDocumentID
	}

	var processed bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeCheckpointKey(docID, true))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		processed = true
		return nil
	}, false)
	if err != nil {
		return false, fmt.Errorf("failed to check checkpoint for %s: %w", docID, err)
	}
	return processed, nil
}

// Mark places docID in exactly one of the two sets: processed when success is
// true, skipped otherwise. The id is removed from the other set in the same
// transaction, so the sets stay disjoint under any crash.
func (r *CheckpointRepository) Mark(ctx context.Context, docID string, success bool) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if docID == "" {
		return core.ErrEmptyDocumentID
	}

	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		entry := &core.CheckpointEntry{
			DocID:     docID,
			Processed: success,
			MarkedAt:  time.Now().UTC(),
		}
		if err := tx.Delete(makeCheckpointKey(docID, !success)); err != nil {
			return err
		}
		if err := tx.Set(makeCheckpointKey(docID, success), storage.MarshalCheckpointEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to mark checkpoint for %s: %w", docID, err)
	}

	r.logger.Debug("checkpoint marked", "doc_id", docID, "processed", success)
	return nil
}

// listSet returns the sorted document ids of one checkpoint set.
func (r *CheckpointRepository) listSet(processed bool) ([]string, error) {
	prefix := checkpointScanPrefix(processed)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	var ids []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, docIDFromKey(it.Item().Key(), prefix))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Processed returns the sorted ids of the processed set.
func (r *CheckpointRepository) Processed(ctx context.Context) ([]string, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	ids, err := r.listSet(true)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed documents: %w", err)
	}
	return ids, nil
}

// Skipped returns the sorted ids of the skipped set.
func (r *CheckpointRepository) Skipped(ctx context.Context) ([]string, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	ids, err := r.listSet(false)
	if err != nil {
		return nil, fmt.Errorf("failed to list skipped documents: %w", err)
	}
	return ids, nil
}

// Clear removes docID from both sets. This is the explicit re-ingestion
// escape hatch; ordinary runs never call it.
func (r *CheckpointRepository) Clear(ctx context.Context, docID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if docID == "" {
		return core.ErrEmptyDocumentID
	}

	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCheckpointKey(docID, true)); err != nil {
			return err
		}
		if err := tx.Delete(makeCheckpointKey(docID, false)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to clear checkpoint for %s: %w", docID, err)
	}

	r.logger.Info("checkpoint cleared", "doc_id", docID)
	return nil
}

// ClearDocument removes docID and every split-segment id descended from it
// (docID_ prefix) from both sets in one transaction. A recursively-split
// document leaves checkpoints under its segment ids; re-ingestion must clear
// those too or the next run skips every segment.
func (r *CheckpointRepository) ClearDocument(ctx context.Context, docID string) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	if docID == "" {
		return 0, core.ErrEmptyDocumentID
	}

	segPrefix := docID + "_"
	cleared := 0
	err := r.backend.WithWriteTx(func(tx *badger.Txn) error {
		cleared = 0
		for _, set := range []bool{true, false} {
			setPrefix := checkpointScanPrefix(set)
			scan := append(append([]byte{}, setPrefix...), docID...)

			opts := badger.DefaultIteratorOptions
			opts.Prefix = scan
			opts.PrefetchValues = false

			// Collect first, then delete: the scan prefix also matches
			// sibling ids like docID2, which must survive.
			var keys [][]byte
			it := tx.NewIterator(opts)
			for it.Rewind(); it.ValidForPrefix(scan); it.Next() {
				id := docIDFromKey(it.Item().Key(), setPrefix)
				if id == docID || strings.HasPrefix(id, segPrefix) {
					keys = append(keys, it.Item().KeyCopy(nil))
				}
			}
			it.Close()

			for _, key := range keys {
				if err := tx.Delete(key); err != nil {
					return err
				}
				cleared++
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear checkpoints for %s: %w", docID, err)
	}

	r.logger.Info("document checkpoints cleared", "doc_id", docID, "cleared", cleared)
	return cleared, nil
}
