package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docvec/core"
)

func TestQueueEntryRoundTrip(t *testing.T) {
	entry := &core.QueueEntry{
		DocID:      "docs/manual.txt",
		State:      core.StateProcessing,
		Attempts:   2,
		EnqueuedAt: time.Date(2026, 3, 1, 10, 30, 0, 123456000, time.UTC),
		UpdatedAt:  time.Date(2026, 3, 1, 10, 31, 5, 0, time.UTC),
	}

	decoded, err := UnmarshalQueueEntry(MarshalQueueEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestQueueEntryTimestampPrecision(t *testing.T) {
	// Timestamps persist at microsecond precision; nanoseconds are dropped.
	entry := &core.QueueEntry{
		DocID:      "doc",
		State:      core.StatePending,
		EnqueuedAt: time.Date(2026, 1, 1, 0, 0, 0, 1500, time.UTC),
		UpdatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalQueueEntry(MarshalQueueEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry.EnqueuedAt.Truncate(time.Microsecond), decoded.EnqueuedAt)
}

func TestUnmarshalQueueEntryTruncated(t *testing.T) {
	bs := MarshalQueueEntry(&core.QueueEntry{
		DocID:      "doc",
		State:      core.StatePending,
		EnqueuedAt: time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	})

	_, err := UnmarshalQueueEntry(bs[:len(bs)/2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshalQueueEntryRejectsInvalidState(t *testing.T) {
	bs := MarshalQueueEntry(&core.QueueEntry{
		DocID: "doc",
		State: core.QueueState(42),
	})

	_, err := UnmarshalQueueEntry(bs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
	assert.ErrorIs(t, err, core.ErrInvalidQueueState)
}

func TestCheckpointEntryRoundTrip(t *testing.T) {
	for _, processed := range []bool{true, false} {
		entry := &core.CheckpointEntry{
			DocID:     "docs/a.txt",
			Processed: processed,
			MarkedAt:  time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
		}

		decoded, err := UnmarshalCheckpointEntry(MarshalCheckpointEntry(entry))
		require.NoError(t, err)
		assert.Equal(t, entry, decoded)
	}
}

func TestUnmarshalCheckpointEntryGarbage(t *testing.T) {
	_, err := UnmarshalCheckpointEntry([]byte{0xff, 0xff, 0xff, 0xff})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
