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


package core

import "fmt"

// ValidateChunkMetadata validates a ChunkMetadata record at construction time
// so read sites never need defensive checks.
//
// Validation rules:
//   - DocumentID must not be empty
//   - ChunkIndex must be >= 0
//   - TotalChunks must be > ChunkIndex
func ValidateChunkMetadata(m *ChunkMetadata) error {
	if m == nil {
		return fmt.Errorf("%w: metadata is nil", ErrInvalidChunkMetadata)
	}

	if m.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkMetadata, ErrEmptyDocumentID)
	}

	if m.ChunkIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunkMetadata, ErrNegativeChunkIndex)
	}

	if m.TotalChunks <= m.ChunkIndex {
		return fmt.Errorf("%w: %w", ErrInvalidChunkMetadata, ErrInvalidTotalChunks)
	}

	return nil
}

// ValidateQueueState checks that the state is one of the four known values.
func ValidateQueueState(s QueueState) error {
	switch s {
	case StatePending, StateProcessing, StateCompleted, StateFailed:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidQueueState, s)
	}
}

// ValidateQueueEntry validates a QueueEntry according to domain rules.
func ValidateQueueEntry(e *QueueEntry) error {
	if e == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidQueueEntry)
	}

	if e.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQueueEntry, ErrEmptyDocumentID)
	}

	if err := ValidateQueueState(e.State); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQueueEntry, err)
	}

	return nil
}

// ValidateSegment validates a Segment produced by the recursive splitter.
func ValidateSegment(s *Segment) error {
	if s == nil {
		return fmt.Errorf("%w: segment is nil", ErrInvalidSegment)
	}

	if s.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrEmptyDocumentID)
	}

	if s.Level < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrNegativeLevel)
	}

	if s.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrEmptyText)
	}

	return nil
}
