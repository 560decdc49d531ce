package core

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// HashContent generates a deterministic hex digest from text content using
// BLAKE2b hashing. Identical content always produces the identical digest,
// which makes it usable as a stable document or chunk identity.
func HashContent(text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkID derives the stable vector-store id for a chunk from its parent
// document id and ordinal index.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_%d", docID, index)
}

// SegmentID derives the id of a recursive-split segment from its parent id
// and 1-based segment number. Zero-padded so siblings sort in order.
func SegmentID(parentID string, num int) string {
	return fmt.Sprintf("%s_%02d", parentID, num)
}

// Document is an identified unit of input text discovered by the scanner.
// Documents are immutable once created; only read afterwards.
type Document struct {
	ID     string // relative path, or content hash when no path exists
	Path   string // absolute path on disk, empty for in-memory segments
	Bytes  int64
	Tokens int // derived by the tokenizer adapter, 0 until counted
}

// Chunk is a contiguous passage bounded by a token budget, overlapping its
// predecessor to preserve context. The owning document is tracked by the
// caller; chunk ids are derived with ChunkID at store time.
type Chunk struct {
	Index   int
	Tokens  int
	Overlap int // tokens shared with the previous chunk
	Text    string
	Hash    string
}

// ChunkMetadata is the typed record attached to every stored vector.
// Downstream citation consumers depend on these fields. DocumentID is the
// unit the chunk was cut from (a split segment id for recursively-split
// documents); Source is always the root document, so store-wide operations
// on a document match every chunk it ever produced.
type ChunkMetadata struct {
	DocumentID  string
	Source      string
	Section     string
	ChunkIndex  int
	TotalChunks int
}

// Segment is a Document-shaped sub-unit produced by the recursive splitter.
// Level 0 is the original document; the level is bounded by configuration,
// and a segment at the bound is ingested as-is regardless of size.
type Segment struct {
	ID       string
	ParentID string
	Level    int
	Text     string
}

// QueueState is the lifecycle state of a work queue entry.
type QueueState int

const (
	// StatePending marks an entry waiting to be processed.
	StatePending QueueState = iota + 1
	// StateProcessing marks an entry held by exactly one worker.
	StateProcessing
	// StateCompleted marks an entry whose chunks were all ingested.
	StateCompleted
	// StateFailed marks an entry that exhausted its attempt budget.
	StateFailed
)

// String returns the lowercase state name used in logs and status output.
func (s QueueState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// QueueEntry is a Document reference plus its queue state and attempt counter.
type QueueEntry struct {
	DocID      string
	State      QueueState
	Attempts   int
	EnqueuedAt time.Time
	UpdatedAt  time.Time
}

// CheckpointEntry records a document in exactly one of the checkpoint's two
// disjoint sets: processed (fully ingested) or skipped (given up on).
type CheckpointEntry struct {
	DocID     string
	Processed bool
	MarkedAt  time.Time
}
