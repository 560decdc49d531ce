package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/docvec/storage"
)

// Scanner enumerates ingestible documents under a root directory and feeds
// the work queue. Document ids are slash-separated paths relative to the
// root, so a queue built on one machine replays on another.
type Scanner struct {
	root       string
	queue      storage.QueueRepository
	checkpoint storage.CheckpointRepository
	logger     *slog.Logger
}

// ScanReport summarizes one scan.
type ScanReport struct {
	Found    int // matching files under the root
	Enqueued int // files added to the queue
	Skipped  int // files excluded because they are already processed
}

// NewScanner creates a scanner rooted at root.
func NewScanner(root string, queue storage.QueueRepository, checkpoint storage.CheckpointRepository) (*Scanner, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if checkpoint == nil {
		return nil, ErrCheckpointRequired
	}

	return &Scanner{
		root:       root,
		queue:      queue,
		checkpoint: checkpoint,
		logger:     slog.Default().With("component", "scanner"),
	}, nil
}

// Scan walks the root for *.txt files in sorted order and enqueues every one
// that is not already in the processed set. Re-running a scan never
// re-enqueues processed documents: the checkpoint, not the queue, decides
// what needs ingesting.
func (s *Scanner) Scan(ctx context.Context) (*ScanReport, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".txt") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.root, err)
	}
	sort.Strings(paths)

	report := &ScanReport{Found: len(paths)}
	for _, path := range paths {
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return report, fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		docID := filepath.ToSlash(rel)

		processed, err := s.checkpoint.IsProcessed(ctx, docID)
		if err != nil {
			return report, err
		}
		if processed {
			report.Skipped++
			continue
		}

		if err := s.queue.Enqueue(ctx, docID); err != nil {
			return report, err
		}
		report.Enqueued++
	}

	s.logger.Info("scan finished",
		"root", s.root,
		"found", report.Found,
		"enqueued", report.Enqueued,
		"skipped", report.Skipped)
	return report, nil
}
