package docvec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docvec/ai/mock"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/ingest"
	"github.com/poiesic/docvec/token"
	"github.com/poiesic/docvec/vectorstore"
)

func openTestPipeline(t *testing.T, opts ...PipelineOption) (*Pipeline, *vectorstore.MemoryStore) {
	t.Helper()

	store := vectorstore.NewMemoryStore()
	require.NoError(t, store.EnsureCollection(context.Background()))

	opts = append([]PipelineOption{
		WithEmbedder(mock.NewMockEmbedder()),
		WithStore(store),
		WithTokenizer(token.NewWords()),
	}, opts...)
	p, err := Open(filepath.Join(t.TempDir(), "db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p, store
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := ingest.DefaultConfig()
	cfg.OverlapTokens = cfg.MaxChunkTokens
	_, err := Open(filepath.Join(t.TempDir(), "db"), WithIngestConfig(cfg))
	assert.Error(t, err)
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	p, store := openTestPipeline(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha beta gamma"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("delta epsilon zeta"), 0644))

	scanner, err := p.NewScanner(root)
	require.NoError(t, err)
	scanReport, err := scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, scanReport.Enqueued)

	runner, err := p.NewRunner(root)
	require.NoError(t, err)
	runReport, err := runner.Run(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, runReport.Processed)
	assert.Equal(t, 2, runReport.Completed)

	processed, err := p.CheckpointRepository().Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, processed)

	_, ok := store.Record(core.ChunkID("a.txt", 0))
	assert.True(t, ok)
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	p, store := openTestPipeline(t)

	records := []vectorstore.Record{
		{ID: core.ChunkID("doc.txt", 0), Text: "one",
			Metadata: core.ChunkMetadata{DocumentID: "doc.txt", Source: "doc.txt"}},
		{ID: core.ChunkID("doc.txt", 1), Text: "two",
			Metadata: core.ChunkMetadata{DocumentID: "doc.txt", Source: "doc.txt"}},
		{ID: core.ChunkID("other.txt", 0), Text: "three",
			Metadata: core.ChunkMetadata{DocumentID: "other.txt", Source: "other.txt"}},
	}
	require.NoError(t, store.Upsert(ctx, records))

	removed, err := p.RemoveDocument(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, ok := store.Record(core.ChunkID("other.txt", 0))
	assert.True(t, ok)
}

func TestRemoveDocumentEmptyID(t *testing.T) {
	p, _ := openTestPipeline(t)
	_, err := p.RemoveDocument(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyDocumentID)
}

func TestReingestDocument(t *testing.T) {
	ctx := context.Background()
	p, store := openTestPipeline(t)

	require.NoError(t, store.Upsert(ctx, []vectorstore.Record{
		{ID: core.ChunkID("doc.txt", 0), Text: "stale",
			Metadata: core.ChunkMetadata{DocumentID: "doc.txt", Source: "doc.txt"}},
	}))
	require.NoError(t, p.CheckpointRepository().Mark(ctx, "doc.txt", true))

	require.NoError(t, p.ReingestDocument(ctx, "doc.txt"))

	// Chunks gone, checkpoint cleared, entry pending again.
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	processed, err := p.CheckpointRepository().IsProcessed(ctx, "doc.txt")
	require.NoError(t, err)
	assert.False(t, processed)

	pending, err := p.QueueRepository().List(ctx, core.StatePending)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.txt"}, pending)
}

func TestReingestSplitDocument(t *testing.T) {
	ctx := context.Background()

	// A ceiling small enough that the document goes through the recursive
	// splitter, leaving its chunks under segment-derived ids.
	cfg := ingest.NewConfig(
		ingest.WithMaxChunkTokens(20),
		ingest.WithOverlapTokens(5),
		ingest.WithBatchSize(3),
		ingest.WithMaxDocumentBytes(120),
		ingest.WithMinSegmentBytes(16),
		ingest.WithMaxAttempts(2),
		ingest.WithRetryBaseDelay(time.Millisecond),
	)
	p, store := openTestPipeline(t, WithIngestConfig(cfg))

	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString("alpha beta gamma delta epsilon zeta eta theta\n\n")
	}
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(sb.String()), 0644))

	scanner, err := p.NewScanner(root)
	require.NoError(t, err)
	_, err = scanner.Scan(ctx)
	require.NoError(t, err)

	runner, err := p.NewRunner(root)
	require.NoError(t, err)
	_, err = runner.Run(ctx, 0)
	require.NoError(t, err)

	stored, err := store.Count(ctx)
	require.NoError(t, err)
	require.Greater(t, stored, 0)

	// No chunk lives under the root document id; they all carry segment ids.
	_, ok := store.Record(core.ChunkID("big.txt", 0))
	require.False(t, ok)

	removed, err := p.RemoveDocument(ctx, "big.txt")
	require.NoError(t, err)
	assert.Equal(t, stored, removed, "split-segment chunks must be removed too")

	require.NoError(t, p.ReingestDocument(ctx, "big.txt"))

	_, err = runner.Run(ctx, 0)
	require.NoError(t, err)

	recount, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, recount, "re-ingestion must repopulate every segment chunk")

	processed, err := p.CheckpointRepository().IsProcessed(ctx, "big.txt")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	p, store := openTestPipeline(t)

	require.NoError(t, p.QueueRepository().Enqueue(ctx, "a.txt"))
	require.NoError(t, p.CheckpointRepository().Mark(ctx, "b.txt", true))
	require.NoError(t, p.CheckpointRepository().Mark(ctx, "c.txt", false))
	require.NoError(t, store.Upsert(ctx, []vectorstore.Record{
		{ID: core.ChunkID("b.txt", 0), Text: "stored"},
	}))

	status, err := p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Queue[core.StatePending])
	assert.Equal(t, 1, status.Processed)
	assert.Equal(t, 1, status.Skipped)
	assert.True(t, status.StoreAlive)
	assert.Equal(t, 1, status.StoreCount)
}

func TestStatusDegradesWhenStoreDown(t *testing.T) {
	ctx := context.Background()
	p, store := openTestPipeline(t)

	store.HeartbeatFunc = func(ctx context.Context) error {
		return vectorstore.ErrStoreUnavailable
	}

	status, err := p.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.StoreAlive)
	assert.Equal(t, 0, status.StoreCount)
}
