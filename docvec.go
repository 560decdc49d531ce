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

// Package docvec wires the document ingestion pipeline together: durable
// queue and checkpoint repositories on BadgerDB, a tokenizer-sized semantic
// chunker, an OpenAI-compatible embedder and a Chroma vector store behind a
// retrying client.
package docvec

import (
	"context"
	"log/slog"

	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/ai/openai"
	"github.com/poiesic/docvec/chunker"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/ingest"
	"github.com/poiesic/docvec/storage"
	"github.com/poiesic/docvec/storage/badger"
	"github.com/poiesic/docvec/token"
	"github.com/poiesic/docvec/vectorstore"
)

// Pipeline owns the shared components of the ingestion system.
type Pipeline struct {
	backend        *badger.Backend
	queueRepo      storage.QueueRepository
	checkpointRepo storage.CheckpointRepository
	embedder       ai.Embedder
	store          vectorstore.Store
	tok            token.Adapter
	config         *ingest.Config
	logger         *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	aiConfig     *ai.Config
	ingestConfig *ingest.Config
	chromaURL    string
	collection   string
	embedder     ai.Embedder
	store        vectorstore.Store
	tok          token.Adapter
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) PipelineOption {
	return func(o *pipelineOptions) { o.aiConfig = cfg }
}

// WithIngestConfig sets the ingestion tunables.
func WithIngestConfig(cfg *ingest.Config) PipelineOption {
	return func(o *pipelineOptions) { o.ingestConfig = cfg }
}

// WithChroma sets the Chroma server URL and collection name.
func WithChroma(url, collection string) PipelineOption {
	return func(o *pipelineOptions) {
		o.chromaURL = url
		o.collection = collection
	}
}

// WithEmbedder overrides the embedder. Intended for tests.
func WithEmbedder(e ai.Embedder) PipelineOption {
	return func(o *pipelineOptions) { o.embedder = e }
}

// WithStore overrides the vector store. Intended for tests.
func WithStore(s vectorstore.Store) PipelineOption {
	return func(o *pipelineOptions) { o.store = s }
}

// WithTokenizer overrides the tokenizer adapter. Intended for tests and
// environments where the BPE vocabulary cannot be fetched.
func WithTokenizer(t token.Adapter) PipelineOption {
	return func(o *pipelineOptions) { o.tok = t }
}

// Open creates a Pipeline backed by a BadgerDB at dbPath.
func Open(dbPath string, opts ...PipelineOption) (*Pipeline, error) {
	options := &pipelineOptions{
		aiConfig:     ai.DefaultConfig(),
		ingestConfig: ingest.DefaultConfig(),
		chromaURL:    "http://localhost:8000",
		collection:   "documents",
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.ingestConfig.Validate(); err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return nil, err
	}

	queueRepo := badger.NewQueueRepository(backend)
	checkpointRepo := badger.NewCheckpointRepository(backend)

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	store := options.store
	if store == nil {
		store = vectorstore.NewRetrying(
			vectorstore.NewChromaStore(options.chromaURL, options.collection),
			options.ingestConfig.MaxAttempts,
			options.ingestConfig.RetryBaseDelay,
		)
	}

	tok := options.tok
	if tok == nil {
		tok, err = token.NewTiktoken()
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Pipeline{
		backend:        backend,
		queueRepo:      queueRepo,
		checkpointRepo: checkpointRepo,
		embedder:       embedder,
		store:          store,
		tok:            tok,
		config:         options.ingestConfig,
		logger:         slog.Default(),
	}, nil
}

// Close releases all resources held by the pipeline.
func (p *Pipeline) Close() error {
	if err := p.queueRepo.Close(); err != nil {
		p.logger.Error("error closing queue repository", "err", err)
		return err
	}
	if err := p.checkpointRepo.Close(); err != nil {
		p.logger.Error("error closing checkpoint repository", "err", err)
		return err
	}
	if err := p.backend.Close(); err != nil {
		p.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// QueueRepository returns the work queue.
func (p *Pipeline) QueueRepository() storage.QueueRepository {
	return p.queueRepo
}

// CheckpointRepository returns the checkpoint ledger.
func (p *Pipeline) CheckpointRepository() storage.CheckpointRepository {
	return p.checkpointRepo
}

// Store returns the vector store.
func (p *Pipeline) Store() vectorstore.Store {
	return p.store
}

// NewScanner creates a document scanner rooted at root.
func (p *Pipeline) NewScanner(root string) (*ingest.Scanner, error) {
	return ingest.NewScanner(root, p.queueRepo, p.checkpointRepo)
}

// NewWorker creates an ingestion worker.
func (p *Pipeline) NewWorker() (*ingest.Worker, error) {
	ck, err := chunker.New(p.tok)
	if err != nil {
		return nil, err
	}
	return ingest.NewWorker(ck, p.embedder, p.store, p.config)
}

// NewSplitter creates a recursive splitter.
func (p *Pipeline) NewSplitter() (*ingest.Splitter, error) {
	worker, err := p.NewWorker()
	if err != nil {
		return nil, err
	}
	return ingest.NewSplitter(worker, p.checkpointRepo, p.store, p.config)
}

// NewRunner creates a queue runner reading documents under root.
func (p *Pipeline) NewRunner(root string) (*ingest.Runner, error) {
	worker, err := p.NewWorker()
	if err != nil {
		return nil, err
	}
	splitter, err := ingest.NewSplitter(worker, p.checkpointRepo, p.store, p.config)
	if err != nil {
		return nil, err
	}
	return ingest.NewRunner(root, p.queueRepo, p.checkpointRepo, worker, splitter, p.config)
}

// RemoveDocument deletes a document's chunks from the store by source
// metadata, so chunks of recursively-split segments are removed along with
// directly-ingested ones. Returns the number of chunks removed.
func (p *Pipeline) RemoveDocument(ctx context.Context, docID string) (int, error) {
	if docID == "" {
		return 0, core.ErrEmptyDocumentID
	}

	removed, err := p.store.DeleteByDocument(ctx, docID)
	if err != nil {
		return removed, err
	}

	p.logger.Info("document removed from store", "doc_id", docID, "chunks", removed)
	return removed, nil
}

// ReingestDocument prepares a document for re-ingestion: its chunks are
// deleted from the store, the checkpoints of the document and all of its
// split segments are cleared, and the document is forced back to pending.
// This is the only path that removes checkpoint membership.
func (p *Pipeline) ReingestDocument(ctx context.Context, docID string) error {
	if _, err := p.RemoveDocument(ctx, docID); err != nil {
		return err
	}
	if _, err := p.checkpointRepo.ClearDocument(ctx, docID); err != nil {
		return err
	}
	return p.queueRepo.Reenqueue(ctx, docID)
}

// Status is a point-in-time snapshot of the pipeline's bookkeeping.
type Status struct {
	Queue      map[core.QueueState]int
	Processed  int
	Skipped    int
	StoreCount int
	StoreAlive bool
}

// Status collects queue counts, checkpoint counts and the store count.
// Store errors degrade the snapshot instead of failing it.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	counts, err := p.queueRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	processed, err := p.checkpointRepo.Processed(ctx)
	if err != nil {
		return nil, err
	}
	skipped, err := p.checkpointRepo.Skipped(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Queue:     counts,
		Processed: len(processed),
		Skipped:   len(skipped),
	}

	if err := p.store.Heartbeat(ctx); err != nil {
		p.logger.Warn("store unreachable", "error", err)
		return status, nil
	}
	status.StoreAlive = true

	if err := p.store.EnsureCollection(ctx); err != nil {
		p.logger.Warn("collection unavailable", "error", err)
		return status, nil
	}
	count, err := p.store.Count(ctx)
	if err != nil {
		p.logger.Warn("store count failed", "error", err)
		return status, nil
	}
	status.StoreCount = count
	return status, nil
}
