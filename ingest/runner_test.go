package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docvec/ai/mock"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage/badger"
	"github.com/poiesic/docvec/vectorstore"
)

type runnerFixture struct {
	root       string
	queue      *badger.QueueRepository
	checkpoint *badger.CheckpointRepository
	store      *vectorstore.MemoryStore
	embedder   *mock.MockEmbedder
	runner     *Runner
	scanner    *Scanner
}

func newRunnerFixture(t *testing.T, cfg *Config) *runnerFixture {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	backend := badger.NewTestBackend(t)
	queue := badger.NewQueueRepository(backend)
	checkpoint := badger.NewCheckpointRepository(backend)
	store := newReadyStore(t)
	embedder := mock.NewMockEmbedder()

	worker := newTestWorker(t, embedder, store, cfg)
	splitter, err := NewSplitter(worker, checkpoint, store, cfg)
	require.NoError(t, err)

	root := t.TempDir()
	runner, err := NewRunner(root, queue, checkpoint, worker, splitter, cfg)
	require.NoError(t, err)
	scanner, err := NewScanner(root, queue, checkpoint)
	require.NoError(t, err)

	return &runnerFixture{
		root:       root,
		queue:      queue,
		checkpoint: checkpoint,
		store:      store,
		embedder:   embedder,
		runner:     runner,
		scanner:    scanner,
	}
}

func TestRunnerDrainsQueue(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()

	writeDoc(t, f.root, "a.txt", "the first document with a few words")
	writeDoc(t, f.root, "b.txt", "the second document with a few words")
	_, err := f.scanner.Scan(ctx)
	require.NoError(t, err)

	report, err := f.runner.Run(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Completed)
	assert.Zero(t, report.Failed)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	processed, err := f.checkpoint.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, processed)

	counts, err := f.queue.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[core.StateCompleted])
	assert.Zero(t, counts[core.StatePending])
}

func TestRunnerMaxIterations(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()

	writeDoc(t, f.root, "a.txt", "words")
	writeDoc(t, f.root, "b.txt", "words")
	writeDoc(t, f.root, "c.txt", "words")
	_, err := f.scanner.Scan(ctx)
	require.NoError(t, err)

	report, err := f.runner.Run(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	counts, err := f.queue.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[core.StatePending])
	assert.Equal(t, 1, counts[core.StateCompleted])
}

func TestRunnerRetriesThenFails(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()

	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	writeDoc(t, f.root, "a.txt", "a document that will never embed")
	_, err := f.scanner.Scan(ctx)
	require.NoError(t, err)

	report, err := f.runner.Run(ctx, 0)
	require.NoError(t, err)
	// MaxAttempts is 2: one initial attempt, one retry, then give up.
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Failed)

	counts, err := f.queue.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[core.StateFailed])

	skipped, err := f.checkpoint.Skipped(ctx)
	require.NoError(t, err)
	assert.Contains(t, skipped, "a.txt")
}

func TestRunnerMissingFileFailsWithoutRetry(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, "ghost.txt"))

	report, err := f.runner.Run(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)

	skipped, err := f.checkpoint.Skipped(ctx)
	require.NoError(t, err)
	assert.Contains(t, skipped, "ghost.txt")
}

func TestRunnerSkipsAlreadyProcessed(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()

	writeDoc(t, f.root, "a.txt", "already handled elsewhere")
	require.NoError(t, f.checkpoint.Mark(ctx, "a.txt", true))
	require.NoError(t, f.queue.Enqueue(ctx, "a.txt"))

	report, err := f.runner.Run(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Completed)
	assert.Zero(t, f.embedder.CallCount(), "processed documents must not touch the embedder")
}

func TestRunnerEscalatesOversizedToSplitter(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDocumentBytes = 200
	cfg.MinSegmentBytes = 16
	f := newRunnerFixture(t, cfg)
	ctx := context.Background()

	writeDoc(t, f.root, "big.txt", paragraphs(10, 10))
	_, err := f.scanner.Scan(ctx)
	require.NoError(t, err)

	report, err := f.runner.Run(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)

	// The splitter checkpointed its leaf segments, and the runner
	// checkpointed the document itself.
	processed, err := f.checkpoint.Processed(ctx)
	require.NoError(t, err)
	assert.Contains(t, processed, "big.txt")
	assert.Greater(t, len(processed), 1)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestRunnerParallel(t *testing.T) {
	f := newRunnerFixture(t, nil)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt"} {
		writeDoc(t, f.root, name, "a handful of words for "+name)
	}
	_, err := f.scanner.Scan(ctx)
	require.NoError(t, err)

	report, err := f.runner.RunParallel(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 4, report.Completed)

	processed, err := f.checkpoint.Processed(ctx)
	require.NoError(t, err)
	assert.Len(t, processed, 4)
}
