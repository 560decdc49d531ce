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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunkMetadata indicates a ChunkMetadata record failed validation.
	ErrInvalidChunkMetadata = errors.New("invalid chunk metadata")

	// ErrInvalidQueueEntry indicates a QueueEntry failed validation.
	ErrInvalidQueueEntry = errors.New("invalid queue entry")

	// ErrInvalidSegment indicates a Segment failed validation.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrEmptyDocumentID indicates the document id field is empty.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrNegativeChunkIndex indicates a chunk index below zero.
	ErrNegativeChunkIndex = errors.New("chunk index cannot be negative")

	// ErrInvalidTotalChunks indicates a total chunk count that cannot contain the index.
	ErrInvalidTotalChunks = errors.New("total chunks must be greater than chunk index")

	// ErrInvalidQueueState indicates an unknown QueueState value.
	ErrInvalidQueueState = errors.New("invalid queue state")

	// ErrNegativeLevel indicates a segment recursion level below zero.
	ErrNegativeLevel = errors.New("recursion level cannot be negative")

	// ErrEmptyText indicates an empty text payload where content is required.
	ErrEmptyText = errors.New("text cannot be empty")
)
