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

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/chunker"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/vectorstore"
)

// Worker turns one document into stored vectors: chunk, dedup-check, embed,
// insert. Batches are small so a crash mid-document loses little; the dedup
// guard makes re-running the same document converge instead of duplicating.
type Worker struct {
	chunker  *chunker.Chunker
	embedder ai.Embedder
	store    vectorstore.Store
	config   *Config
	logger   *slog.Logger
}

// Outcome reports what happened to one document's chunks.
type Outcome struct {
	Chunks   int // chunks produced by the chunker
	Inserted int // chunks embedded and stored this run
	Skipped  int // chunks already present (dedup guard)
	Failed   int // chunks whose batch could not be stored
}

// NewWorker creates an ingestion worker.
func NewWorker(ck *chunker.Chunker, embedder ai.Embedder, store vectorstore.Store, config *Config) (*Worker, error) {
	if ck == nil {
		return nil, ErrChunkerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Worker{
		chunker:  ck,
		embedder: embedder,
		store:    store,
		config:   config,
		logger:   slog.Default().With("component", "ingest-worker"),
	}, nil
}

// sectionName derives the human-readable section label stored in chunk
// metadata from a document id.
func sectionName(docID string) string {
	base := filepath.Base(docID)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Ingest chunks text and stores the chunks under ids derived from docID.
// Documents over the configured size ceiling are rejected with
// ErrDocumentTooLarge so the caller can escalate to the recursive splitter.
func (w *Worker) Ingest(ctx context.Context, docID, text string) (*Outcome, error) {
	if int64(len(text)) > w.config.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrDocumentTooLarge, docID, len(text))
	}
	return w.ingest(ctx, docID, docID, text)
}

// ingest is Ingest without the size ceiling. The splitter uses it for
// segments it has decided to ingest as-is; source is then the root document
// id the segment descends from, so every stored chunk stays attributable to
// its original document.
func (w *Worker) ingest(ctx context.Context, docID, source, text string) (*Outcome, error) {
	if docID == "" {
		return nil, core.ErrEmptyDocumentID
	}

	outcome := &Outcome{}
	if strings.TrimSpace(text) == "" {
		w.logger.Debug("document is empty, nothing to ingest", "doc_id", docID)
		return outcome, nil
	}

	chunks, err := w.chunker.Chunk(text, w.config.MaxChunkTokens, w.config.OverlapTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk %s: %w", docID, err)
	}
	outcome.Chunks = len(chunks)

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = core.ChunkID(docID, i)
	}

	// Dedup guard: ask the store which ids already exist. If the lookup
	// fails we assume everything is new; the insert-only store rejects
	// duplicates anyway, so the worst case is a failed batch, not data loss.
	existing := make(map[string]bool)
	existingIDs, err := w.store.Get(ctx, ids)
	if err != nil {
		w.logger.Warn("dedup lookup failed, assuming all chunks are new", "doc_id", docID, "error", err)
	} else {
		for _, id := range existingIDs {
			existing[id] = true
		}
	}

	section := sectionName(source)
	var pending []vectorstore.Record
	for i, chunk := range chunks {
		if existing[ids[i]] {
			outcome.Skipped++
			continue
		}
		pending = append(pending, vectorstore.Record{
			ID:   ids[i],
			Text: chunk.Text,
			Metadata: core.ChunkMetadata{
				DocumentID:  docID,
				Source:      source,
				Section:     section,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
			},
		})
	}

	if outcome.Skipped > 0 {
		w.logger.Info("skipping chunks already in store", "doc_id", docID, "skipped", outcome.Skipped)
	}

	for start := 0; start < len(pending); start += w.config.BatchSize {
		end := min(start+w.config.BatchSize, len(pending))
		batch := pending[start:end]

		if err := w.storeBatch(ctx, batch); err != nil {
			w.logger.Error("batch failed", "doc_id", docID, "batch_start", start, "size", len(batch), "error", err)
			outcome.Failed += len(batch)
			continue
		}
		outcome.Inserted += len(batch)
	}

	w.logger.Info("document ingested",
		"doc_id", docID,
		"chunks", outcome.Chunks,
		"inserted", outcome.Inserted,
		"skipped", outcome.Skipped,
		"failed", outcome.Failed)

	if outcome.Failed > 0 {
		return outcome, fmt.Errorf("%w: %d of %d chunks for %s", ErrBatchFailed, outcome.Failed, outcome.Chunks, docID)
	}
	return outcome, nil
}

// storeBatch embeds one batch of records and inserts it, retrying transient
// failures with exponential backoff.
func (w *Worker) storeBatch(ctx context.Context, batch []vectorstore.Record) error {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Text
	}

	var embeddings [][]float32
	err := vectorstore.RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = w.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, w.config.MaxAttempts, w.config.RetryBaseDelay)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(batch))
	}

	for i := range batch {
		batch[i].Embedding = embeddings[i]
	}

	if err := w.store.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("store insert failed: %w", err)
	}
	return nil
}
