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

package vectorstore

import "errors"

var (
	// ErrStoreUnavailable indicates the store could not be reached, or stayed
	// unreachable across the full retry budget.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrCollectionNotReady indicates a data operation was attempted before
	// EnsureCollection succeeded.
	ErrCollectionNotReady = errors.New("collection not ready")

	// ErrDuplicateID indicates an insert of an id that already exists.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrInvalidMaxAttempts indicates a non-positive retry attempt budget.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
