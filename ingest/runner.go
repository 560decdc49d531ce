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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

// Runner drains the work queue: dequeue a document, ingest it, record the
// outcome in the queue and the checkpoint. Documents that fail within their
// attempt budget go back to pending; exhausted documents are failed and
// recorded as skipped.
type Runner struct {
	root       string
	queue      storage.QueueRepository
	checkpoint storage.CheckpointRepository
	worker     *Worker
	splitter   *Splitter
	config     *Config
	logger     *slog.Logger
}

// RunReport summarizes one queue-draining run.
type RunReport struct {
	Processed int // entries dequeued
	Completed int // documents fully ingested
	Requeued  int // documents sent back to pending for another attempt
	Failed    int // documents that exhausted their attempt budget
}

// NewRunner creates a queue runner reading document files under root.
func NewRunner(root string, queue storage.QueueRepository, checkpoint storage.CheckpointRepository, worker *Worker, splitter *Splitter, config *Config) (*Runner, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if checkpoint == nil {
		return nil, ErrCheckpointRequired
	}
	if worker == nil {
		return nil, ErrWorkerRequired
	}
	if splitter == nil {
		return nil, ErrSplitterRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Runner{
		root:       root,
		queue:      queue,
		checkpoint: checkpoint,
		worker:     worker,
		splitter:   splitter,
		config:     config,
		logger:     slog.Default().With("component", "runner"),
	}, nil
}

// ProcessOne handles a single queue entry end to end. Returns false when the
// queue is empty. Processing errors are recorded in the queue, not returned;
// only storage-level failures surface as errors.
func (r *Runner) ProcessOne(ctx context.Context) (bool, error) {
	entry, err := r.queue.Dequeue(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrQueueEmpty) {
			return false, nil
		}
		return false, err
	}

	docID := entry.DocID
	logger := r.logger.With("doc_id", docID, "attempt", entry.Attempts)

	// The checkpoint, not the queue, is the source of truth. An entry for an
	// already-processed document (stale queue, concurrent worker) completes
	// without touching the store.
	processed, err := r.checkpoint.IsProcessed(ctx, docID)
	if err != nil {
		return true, err
	}
	if processed {
		logger.Info("document already processed, completing entry")
		return true, r.queue.Complete(ctx, docID)
	}

	text, readErr := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(docID)))
	if readErr != nil {
		// A missing or unreadable file will not fix itself; no retry.
		logger.Error("cannot read document, giving up", "error", readErr)
		if err := r.queue.Fail(ctx, docID); err != nil {
			return true, err
		}
		return true, r.checkpoint.Mark(ctx, docID, false)
	}

	ingestErr := r.ingestDocument(ctx, docID, string(text))
	if ingestErr == nil {
		logger.Info("document completed")
		if err := r.checkpoint.Mark(ctx, docID, true); err != nil {
			return true, err
		}
		return true, r.queue.Complete(ctx, docID)
	}

	if entry.Attempts < r.config.MaxAttempts {
		logger.Warn("document failed, requeueing", "error", ingestErr)
		return true, r.queue.Requeue(ctx, docID)
	}

	logger.Error("document failed, attempt budget exhausted", "error", ingestErr)
	if err := r.queue.Fail(ctx, docID); err != nil {
		return true, err
	}
	return true, r.checkpoint.Mark(ctx, docID, false)
}

// ingestDocument runs the worker, escalating to the recursive splitter when
// the document is over the direct-ingestion size ceiling.
func (r *Runner) ingestDocument(ctx context.Context, docID, text string) error {
	_, err := r.worker.Ingest(ctx, docID, text)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrDocumentTooLarge) {
		return err
	}

	r.logger.Info("document over size limit, using recursive splitter", "doc_id", docID, "bytes", len(text))
	_, err = r.splitter.Ingest(ctx, docID, text)
	return err
}

// Run drains the queue sequentially. maxIterations bounds the number of
// entries processed; 0 means run until the queue is empty.
func (r *Runner) Run(ctx context.Context, maxIterations int) (*RunReport, error) {
	report := &RunReport{}

	pending, err := r.pendingCount(ctx)
	if err != nil {
		return nil, err
	}
	total := pending
	if maxIterations > 0 && maxIterations < total {
		total = maxIterations
	}
	tracker := NewProgressTracker(os.Stderr, total, 1)
	tracker.Start()
	defer tracker.Finish()

	for i := 0; maxIterations == 0 || i < maxIterations; i++ {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		ok, err := r.ProcessOne(ctx)
		if err != nil {
			return report, err
		}
		if !ok {
			break
		}
		report.Processed++
		tracker.Increment(1)
	}

	r.fillCounts(ctx, report)
	r.logger.Info("run finished",
		"processed", report.Processed,
		"completed", report.Completed,
		"failed", report.Failed,
		"elapsed", tracker.Elapsed())
	return report, nil
}

// RunParallel drains the queue with a pool of independent workers. Each
// worker loops ProcessOne; documents are processed one per worker at a time,
// so per-document processing stays sequential.
func (r *Runner) RunParallel(ctx context.Context, workers, maxIterations int) (*RunReport, error) {
	if workers <= 1 {
		return r.Run(ctx, maxIterations)
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		report    = &RunReport{}
		runErr    error
		remaining = maxIterations
	)

	// take reserves one iteration from the shared budget.
	take := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if runErr != nil {
			return false
		}
		if maxIterations > 0 {
			if remaining == 0 {
				return false
			}
			remaining--
		}
		return true
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			for take() {
				ok, err := r.ProcessOne(ctx)
				mu.Lock()
				if err != nil {
					if runErr == nil {
						runErr = err
					}
					mu.Unlock()
					return
				}
				if !ok {
					mu.Unlock()
					return
				}
				report.Processed++
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if runErr == nil {
				runErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	if runErr != nil {
		return report, runErr
	}
	r.fillCounts(ctx, report)
	r.logger.Info("parallel run finished", "workers", workers, "processed", report.Processed,
		"completed", report.Completed, "failed", report.Failed)
	return report, nil
}

// pendingCount returns the current pending queue depth.
func (r *Runner) pendingCount(ctx context.Context) (int, error) {
	counts, err := r.queue.Counts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read queue counts: %w", err)
	}
	return counts[core.StatePending], nil
}

// fillCounts copies terminal queue counts into the report. Best effort.
func (r *Runner) fillCounts(ctx context.Context, report *RunReport) {
	counts, err := r.queue.Counts(ctx)
	if err != nil {
		r.logger.Warn("failed to read queue counts", "error", err)
		return
	}
	report.Completed = counts[core.StateCompleted]
	report.Failed = counts[core.StateFailed]
	report.Requeued = counts[core.StatePending]
}
