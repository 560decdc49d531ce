package badger

import (
	"fmt"

	"github.com/poiesic/docvec/core"
)

// Key prefixes for different data types
const (
	queuePendingPrefix       = "quepen"
	queueProcessingPrefix    = "quepro"
	queueCompletedPrefix     = "quecom"
	queueFailedPrefix        = "quefai"
	checkpointProcessedPrefix = "ckpprc"
	checkpointSkippedPrefix   = "ckpskp"
)

// queueStatePrefix maps a queue state to its key prefix.
func queueStatePrefix(state core.QueueState) string {
	switch state {
	case core.StatePending:
		return queuePendingPrefix
	case core.StateProcessing:
		return queueProcessingPrefix
	case core.StateCompleted:
		return queueCompletedPrefix
	case core.StateFailed:
		return queueFailedPrefix
	default:
		return ""
	}
}

// makeQueueKey generates a key for a queue entry in the given state.
func makeQueueKey(state core.QueueState, docID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", queueStatePrefix(state), docID))
}

// queueScanPrefix generates the iteration prefix for a queue state.
func queueScanPrefix(state core.QueueState) []byte {
	return []byte(queueStatePrefix(state) + ":")
}

// makeCheckpointKey generates a key for a checkpoint entry.
// Processed and skipped entries live under disjoint prefixes.
func makeCheckpointKey(docID string, processed bool) []byte {
	prefix := checkpointSkippedPrefix
	if processed {
		prefix = checkpointProcessedPrefix
	}
	return []byte(fmt.Sprintf("%s:%s", prefix, docID))
}

// checkpointScanPrefix generates the iteration prefix for one checkpoint set.
func checkpointScanPrefix(processed bool) []byte {
	if processed {
		return []byte(checkpointProcessedPrefix + ":")
	}
	return []byte(checkpointSkippedPrefix + ":")
}

// docIDFromKey strips the state prefix from a key, returning the document id.
func docIDFromKey(key, prefix []byte) string {
	return string(key[len(prefix):])
}
