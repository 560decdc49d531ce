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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docvec/core"
)

// Queue and checkpoint records are persisted in the MUS binary format.
// The serializers are written by hand: the record shapes are small and
// stable, field order is the wire contract.

// MarshalQueueEntry serializes a QueueEntry to bytes.
func MarshalQueueEntry(e *core.QueueEntry) []byte {
	size := ord.String.Size(e.DocID) +
		varint.Int.Size(int(e.State)) +
		varint.Int.Size(e.Attempts) +
		varint.Int64.Size(e.EnqueuedAt.UnixMicro()) +
		varint.Int64.Size(e.UpdatedAt.UnixMicro())
	bs := make([]byte, size)
	n := ord.String.Marshal(e.DocID, bs)
	n += varint.Int.Marshal(int(e.State), bs[n:])
	n += varint.Int.Marshal(e.Attempts, bs[n:])
	n += varint.Int64.Marshal(e.EnqueuedAt.UnixMicro(), bs[n:])
	varint.Int64.Marshal(e.UpdatedAt.UnixMicro(), bs[n:])
	return bs
}

// UnmarshalQueueEntry deserializes a QueueEntry from bytes.
func UnmarshalQueueEntry(bs []byte) (*core.QueueEntry, error) {
	docID, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	state, n1, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	n += n1
	attempts, n1, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	n += n1
	enqueued, n1, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	n += n1
	updated, _, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	entry := &core.QueueEntry{
		DocID:      docID,
		State:      core.QueueState(state),
		Attempts:   attempts,
		EnqueuedAt: time.UnixMicro(enqueued).UTC(),
		UpdatedAt:  time.UnixMicro(updated).UTC(),
	}
	if err := core.ValidateQueueEntry(entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return entry, nil
}

// MarshalCheckpointEntry serializes a CheckpointEntry to bytes.
func MarshalCheckpointEntry(e *core.CheckpointEntry) []byte {
	size := ord.String.Size(e.DocID) +
		ord.Bool.Size(e.Processed) +
		varint.Int64.Size(e.MarkedAt.UnixMicro())
	bs := make([]byte, size)
	n := ord.String.Marshal(e.DocID, bs)
	n += ord.Bool.Marshal(e.Processed, bs[n:])
	varint.Int64.Marshal(e.MarkedAt.UnixMicro(), bs[n:])
	return bs
}

// UnmarshalCheckpointEntry deserializes a CheckpointEntry from bytes.
func UnmarshalCheckpointEntry(bs []byte) (*core.CheckpointEntry, error) {
	docID, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	processed, n1, err := ord.Bool.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	n += n1
	marked, _, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	return &core.CheckpointEntry{
		DocID:     docID,
		Processed: processed,
		MarkedAt:  time.UnixMicro(marked).UTC(),
	}, nil
}
