package ingest

import "errors"

var (
	// ErrChunkerRequired indicates a nil chunker was passed to a constructor.
	ErrChunkerRequired = errors.New("chunker is required")

	// ErrEmbedderRequired indicates a nil embedder was passed to a constructor.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrStoreRequired indicates a nil vector store was passed to a constructor.
	ErrStoreRequired = errors.New("vector store is required")

	// ErrWorkerRequired indicates a nil worker was passed to a constructor.
	ErrWorkerRequired = errors.New("worker is required")

	// ErrSplitterRequired indicates a nil splitter was passed to a constructor.
	ErrSplitterRequired = errors.New("splitter is required")

	// ErrQueueRequired indicates a nil queue repository was passed to a constructor.
	ErrQueueRequired = errors.New("queue repository is required")

	// ErrCheckpointRequired indicates a nil checkpoint repository was passed
	// to a constructor.
	ErrCheckpointRequired = errors.New("checkpoint repository is required")

	// ErrDocumentTooLarge indicates a document over the direct-ingestion size
	// ceiling; the caller should escalate to the recursive splitter.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")

	// ErrBatchFailed indicates one or more chunk batches could not be
	// embedded or inserted.
	ErrBatchFailed = errors.New("chunk batch failed")

	// ErrVerificationFailed indicates a post-ingest store lookup did not find
	// the chunks that were just inserted.
	ErrVerificationFailed = errors.New("post-ingest verification failed")

	// ErrSegmentsFailed indicates the recursive splitter gave up on one or
	// more leaf segments.
	ErrSegmentsFailed = errors.New("segments failed to ingest")
)
