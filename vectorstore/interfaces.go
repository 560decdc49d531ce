package vectorstore

import (
	"context"

	"github.com/poiesic/docvec/core"
)

// Record is one stored vector: the chunk text, its embedding and the typed
// metadata downstream citation consumers depend on.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  core.ChunkMetadata
}

// Store is the vector database contract used by the ingestion pipeline.
// Implementations must be thread-safe for concurrent use.
type Store interface {
	// EnsureCollection creates the collection if it does not exist yet.
	// Collections are created with the cosine distance metric. Idempotent;
	// must be called before any data operation.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts the given records. Insert-only: callers guard against
	// duplicate ids via Get first; inserting an existing id is an error.
	Upsert(ctx context.Context, records []Record) error

	// Get returns the subset of the given ids that already exist in the
	// collection. Used as the dedup guard before Upsert.
	Get(ctx context.Context, ids []string) ([]string, error)

	// Count returns the total number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Delete removes the given ids. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteByDocument removes every record whose metadata names docID as its
	// source document. This covers both directly-ingested chunks and the
	// chunks of recursively-split segments, and is immune to gaps in the
	// chunk index sequence. Returns the number of records removed.
	DeleteByDocument(ctx context.Context, docID string) (int, error)

	// Heartbeat verifies the store is alive and reachable.
	Heartbeat(ctx context.Context) error
}
