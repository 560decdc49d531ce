package storage

import (
	"context"

	"github.com/poiesic/docvec/core"
)

// Repository provides common operations shared across repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// QueueRepository is a durable, crash-safe record of documents moving
// through pending -> processing -> {completed, failed}. Every transition is
// applied in a single transaction, so a killed process never loses entries.
type QueueRepository interface {
	Repository

	// Enqueue adds a document to the pending list. Idempotent: an id already
	// pending, processing or completed is left untouched. An id in the
	// failed list is moved back to pending with a fresh attempt counter.
	Enqueue(ctx context.Context, docID string) error

	// Dequeue moves exactly one entry from pending to processing and
	// returns it with its attempt counter incremented.
	// Returns ErrQueueEmpty when no entry is pending.
	Dequeue(ctx context.Context) (*core.QueueEntry, error)

	// Complete moves an id into the completed list. Safe to call even if
	// the id is not currently processing; in that case it is an idempotent
	// upsert into the terminal list.
	Complete(ctx context.Context, docID string) error

	// Fail moves an id into the failed list. Same idempotency as Complete.
	Fail(ctx context.Context, docID string) error

	// Requeue moves an id from processing back to pending, preserving its
	// attempt counter, so it can be retried within its attempt budget.
	Requeue(ctx context.Context, docID string) error

	// Reenqueue forces an id back to pending with a fresh attempt counter,
	// regardless of its current state — including completed. This is the
	// explicit re-ingestion path; ordinary enqueuing goes through Enqueue.
	Reenqueue(ctx context.Context, docID string) error

	// Recover conflates every processing entry back to pending. Called once
	// at startup so entries orphaned by a crash are picked up again.
	// Returns the number of recovered entries.
	Recover(ctx context.Context) (int, error)

	// Counts returns the number of entries in each state.
	Counts(ctx context.Context) (map[core.QueueState]int, error)

	// List returns the document ids currently in the given state, sorted.
	List(ctx context.Context, state core.QueueState) ([]string, error)
}

// CheckpointRepository is an idempotent ledger of fully-ingested document
// ids, persisted independently of the queue. It is the single source of
// truth for "should this document be re-ingested": a regenerated queue must
// exclude everything in the processed set. Membership is monotonic; only an
// explicit re-ingestion action removes a record.
type CheckpointRepository interface {
	Repository

	// IsProcessed reports whether the document is in the processed set.
	IsProcessed(ctx context.Context, docID string) (bool, error)

	// Mark places the document in exactly one of the two disjoint sets:
	// processed on success, skipped otherwise. Marking one set removes the
	// id from the other.
	Mark(ctx context.Context, docID string, success bool) error

	// Processed returns the sorted ids of the processed set.
	Processed(ctx context.Context) ([]string, error)

	// Skipped returns the sorted ids of the skipped set.
	Skipped(ctx context.Context) ([]string, error)

	// Clear removes the document from both sets. This is the explicit
	// re-ingestion escape hatch; ordinary runs never call it.
	Clear(ctx context.Context, docID string) error

	// ClearDocument removes the document and every split segment descended
	// from it (ids under the docID_ prefix) from both sets, returning the
	// number of ids cleared. Re-ingesting a recursively-split document must
	// clear its segment checkpoints too, or the next run skips every segment.
	ClearDocument(ctx context.Context, docID string) (int, error)
}
