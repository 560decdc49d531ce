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

	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
	"github.com/poiesic/docvec/vectorstore"
)

// Splitter ingests documents too large (or too troublesome) for the worker
// alone. It halves a segment at semantic boundaries and recurses, bounded by
// Config.MaxDepth; a segment at the bound is ingested as-is rather than
// dropped. Successfully ingested segments are checkpointed under their own
// ids, so an interrupted run resumes where it stopped.
type Splitter struct {
	worker     *Worker
	checkpoint storage.CheckpointRepository
	store      vectorstore.Store
	config     *Config
	logger     *slog.Logger
}

// SplitReport summarizes one recursive ingestion.
type SplitReport struct {
	SegmentsCreated int // segments produced by splitting, excluding the root
	Ingested        int // leaf segments stored this run
	Skipped         int // segments already checkpointed from an earlier run
	FailedLeaves    int // leaf segments given up on
	MaxLevel        int // deepest recursion level reached
}

// NewSplitter creates a recursive splitter on top of an ingestion worker.
func NewSplitter(worker *Worker, checkpoint storage.CheckpointRepository, store vectorstore.Store, config *Config) (*Splitter, error) {
	if worker == nil {
		return nil, ErrWorkerRequired
	}
	if checkpoint == nil {
		return nil, ErrCheckpointRequired
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

	return &Splitter{
		worker:     worker,
		checkpoint: checkpoint,
		store:      store,
		config:     config,
		logger:     slog.Default().With("component", "recursive-splitter"),
	}, nil
}

// Ingest recursively ingests text under docID. The returned report is always
// populated; the error is non-nil when any leaf segment was given up on.
func (s *Splitter) Ingest(ctx context.Context, docID, text string) (*SplitReport, error) {
	if docID == "" {
		return nil, core.ErrEmptyDocumentID
	}

	report := &SplitReport{}
	s.ingestSegment(ctx, core.Segment{ID: docID, Level: 0, Text: text}, docID, report)

	s.logger.Info("recursive ingestion finished",
		"doc_id", docID,
		"segments", report.SegmentsCreated,
		"ingested", report.Ingested,
		"skipped", report.Skipped,
		"failed", report.FailedLeaves,
		"max_level", report.MaxLevel)

	if report.FailedLeaves > 0 {
		return report, fmt.Errorf("%w: %d leaves of %s", ErrSegmentsFailed, report.FailedLeaves, docID)
	}
	return report, nil
}

// ingestSegment ingests one segment, splitting and recursing when it is too
// large or when a direct attempt fails. source is the root document id the
// recursion started from. Failures are accounted in the report rather than
// propagated, so siblings still get their chance.
func (s *Splitter) ingestSegment(ctx context.Context, seg core.Segment, source string, report *SplitReport) {
	if seg.Level > report.MaxLevel {
		report.MaxLevel = seg.Level
	}

	processed, err := s.checkpoint.IsProcessed(ctx, seg.ID)
	if err != nil {
		s.logger.Warn("checkpoint lookup failed", "segment", seg.ID, "error", err)
	} else if processed {
		s.logger.Debug("segment already processed, skipping", "segment", seg.ID)
		report.Skipped++
		return
	}

	fits := int64(len(seg.Text)) <= s.config.MaxDocumentBytes

	if fits || seg.Level >= s.config.MaxDepth {
		if !fits {
			s.logger.Warn("recursion bound reached, ingesting oversized segment as-is",
				"segment", seg.ID, "bytes", len(seg.Text))
		}
		if err := s.ingestLeaf(ctx, seg, source); err == nil {
			report.Ingested++
			return
		} else {
			s.logger.Warn("segment ingestion failed", "segment", seg.ID, "level", seg.Level, "error", err)
			if seg.Level >= s.config.MaxDepth {
				s.giveUp(ctx, seg, report)
				return
			}
		}
	}

	// Halve at semantic boundaries. The target never goes below the floor:
	// segments smaller than that are not worth their per-segment overhead.
	target := int64(len(seg.Text)) / 2
	if target < s.config.MinSegmentBytes {
		target = s.config.MinSegmentBytes
	}

	parts := s.worker.chunker.SplitBoundaries(seg.Text, int(target))
	if len(parts) <= 1 {
		// No boundary to split at. If the segment was oversized we have not
		// tried it directly yet; do that now rather than dropping content.
		if !fits {
			if err := s.ingestLeaf(ctx, seg, source); err == nil {
				report.Ingested++
				return
			}
		}
		s.giveUp(ctx, seg, report)
		return
	}

	s.logger.Info("splitting segment", "segment", seg.ID, "level", seg.Level, "parts", len(parts))
	for i, part := range parts {
		child := core.Segment{
			ID:       core.SegmentID(seg.ID, i+1),
			ParentID: seg.ID,
			Level:    seg.Level + 1,
			Text:     part,
		}
		report.SegmentsCreated++
		s.ingestSegment(ctx, child, source, report)
	}
}

// ingestLeaf stores one segment through the worker, verifies the first chunk
// actually landed, and checkpoints the segment id.
func (s *Splitter) ingestLeaf(ctx context.Context, seg core.Segment, source string) error {
	outcome, err := s.worker.ingest(ctx, seg.ID, source, seg.Text)
	if err != nil {
		return err
	}

	if outcome.Chunks > 0 {
		firstID := core.ChunkID(seg.ID, 0)
		existing, verr := s.store.Get(ctx, []string{firstID})
		if verr != nil {
			return fmt.Errorf("%w: %w", ErrVerificationFailed, verr)
		}
		if len(existing) == 0 {
			return fmt.Errorf("%w: %s missing after insert", ErrVerificationFailed, firstID)
		}
	}

	if err := s.checkpoint.Mark(ctx, seg.ID, true); err != nil {
		return fmt.Errorf("failed to checkpoint segment %s: %w", seg.ID, err)
	}
	return nil
}

// giveUp records a leaf segment as permanently skipped.
func (s *Splitter) giveUp(ctx context.Context, seg core.Segment, report *SplitReport) {
	report.FailedLeaves++
	if err := s.checkpoint.Mark(ctx, seg.ID, false); err != nil {
		s.logger.Error("failed to record skipped segment", "segment", seg.ID, "error", err)
	}
}
