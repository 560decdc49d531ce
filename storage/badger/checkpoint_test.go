package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docvec/core"
)

func TestCheckpointMarkAndCheck(t *testing.T) {
	backend := NewTestBackend(t)
	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	processed, err := repo.IsProcessed(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, repo.Mark(ctx, "docs/a.txt", true))

	processed, err = repo.IsProcessed(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestCheckpointSetsDisjoint(t *testing.T) {
	backend := NewTestBackend(t)
	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	require.NoError(t, repo.Mark(ctx, "docs/a.txt", false))
	require.NoError(t, repo.Mark(ctx, "docs/a.txt", true))

	processedIDs, err := repo.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.txt"}, processedIDs)

	skippedIDs, err := repo.Skipped(ctx)
	require.NoError(t, err)
	assert.Empty(t, skippedIDs)

	// And back again: marking skipped removes from processed.
	require.NoError(t, repo.Mark(ctx, "docs/a.txt", false))

	processedIDs, err = repo.Processed(ctx)
	require.NoError(t, err)
	assert.Empty(t, processedIDs)

	skippedIDs, err = repo.Skipped(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.txt"}, skippedIDs)
}

func TestCheckpointClearDocument(t *testing.T) {
	backend := NewTestBackend(t)
	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	// A recursively-split document: the root plus segment checkpoints in
	// both sets, and a sibling whose id shares the byte prefix.
	require.NoError(t, repo.Mark(ctx, "docs/big.txt", true))
	require.NoError(t, repo.Mark(ctx, "docs/big.txt_01", true))
	require.NoError(t, repo.Mark(ctx, "docs/big.txt_02_01", true))
	require.NoError(t, repo.Mark(ctx, "docs/big.txt_02_02", false))
	require.NoError(t, repo.Mark(ctx, "docs/big.txt2", true))

	cleared, err := repo.ClearDocument(ctx, "docs/big.txt")
	require.NoError(t, err)
	assert.Equal(t, 4, cleared)

	processedIDs, err := repo.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/big.txt2"}, processedIDs, "prefix-sharing sibling must survive")

	skippedIDs, err := repo.Skipped(ctx)
	require.NoError(t, err)
	assert.Empty(t, skippedIDs)

	cleared, err = repo.ClearDocument(ctx, "docs/big.txt")
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestCheckpointMarkIdempotent(t *testing.T) {
	backend := NewTestBackend(t)
	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	require.NoError(t, repo.Mark(ctx, "docs/a.txt", true))
	require.NoError(t, repo.Mark(ctx, "docs/a.txt", true))

	ids, err := repo.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.txt"}, ids)
}

func TestCheckpointListsSorted(t *testing.T) {
	backend := NewTestBackend(t)
	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	require.NoError(t, repo.Mark(ctx, "docs/c.txt", true))
	require.NoError(t, repo.Mark(ctx, "docs/a.txt", true))
	require.NoError(t, repo.Mark(ctx, "docs/b.txt", false))

	processedIDs, err := repo.Processed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.txt", "docs/c.txt"}, processedIDs)

	skippedIDs, err := repo.Skipped(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/b.txt"}, skippedIDs)
}

func TestCheckpointClear(t *testing.T) {
	backend := NewTestBackend(t)
	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	require.NoError(t, repo.Mark(ctx, "docs/a.txt", true))
	require.NoError(t, repo.Clear(ctx, "docs/a.txt"))

	processed, err := repo.IsProcessed(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.False(t, processed)

	// Clearing an unknown id is a no-op, not an error.
	require.NoError(t, repo.Clear(ctx, "docs/never-seen.txt"))
}

func TestCheckpointSurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoint")
	ctx := context.Background()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	repo := NewCheckpointRepository(backend)
	require.NoError(t, repo.Mark(ctx, "docs/a.txt", true))
	require.NoError(t, repo.Mark(ctx, "docs/b.txt", false))
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()
	repo = NewCheckpointRepository(backend)

	processed, err := repo.IsProcessed(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.True(t, processed)

	skippedIDs, err := repo.Skipped(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/b.txt"}, skippedIDs)
}

func TestCheckpointEmptyDocID(t *testing.T) {
	backend := NewTestBackend(t)
	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	_, err := repo.IsProcessed(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyDocumentID)
	assert.ErrorIs(t, repo.Mark(ctx, "", true), core.ErrEmptyDocumentID)
	assert.ErrorIs(t, repo.Clear(ctx, ""), core.ErrEmptyDocumentID)
}
