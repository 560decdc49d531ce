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

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		// Calculate exponential backoff: baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// Retrying decorates a Store with bounded exponential-backoff retries.
// Before every resumed attempt it verifies the store is alive again via
// Heartbeat, so a long outage burns attempts on cheap liveness probes
// instead of full data payloads.
type Retrying struct {
	store       Store
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

var _ Store = (*Retrying)(nil)

// NewRetrying wraps store with retry behavior. maxAttempts must be > 0.
func NewRetrying(store Store, maxAttempts int, baseDelay time.Duration) *Retrying {
	return &Retrying{
		store:       store,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      slog.Default().With("component", "retrying-store"),
	}
}

// do runs op with the retry budget, probing liveness before every attempt
// after the first.
func (r *Retrying) do(ctx context.Context, name string, op func() error) error {
	if r.maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if attempt > 1 {
			delay := r.baseDelay
			for i := 2; i < attempt; i++ {
				delay *= 2
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			if err := r.store.Heartbeat(ctx); err != nil {
				lastErr = err
				r.logger.Warn("store still unreachable", "operation", name, "attempt", attempt, "error", err)
				continue
			}
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("store operation recovered", "operation", name, "attempt", attempt)
			}
			return nil
		}
		r.logger.Warn("store operation failed", "operation", name, "attempt", attempt, "maxAttempts", r.maxAttempts, "error", lastErr)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, r.maxAttempts, lastErr)
}

func (r *Retrying) EnsureCollection(ctx context.Context) error {
	return r.do(ctx, "ensure_collection", func() error {
		return r.store.EnsureCollection(ctx)
	})
}

func (r *Retrying) Upsert(ctx context.Context, records []Record) error {
	return r.do(ctx, "upsert", func() error {
		return r.store.Upsert(ctx, records)
	})
}

func (r *Retrying) Get(ctx context.Context, ids []string) ([]string, error) {
	var existing []string
	err := r.do(ctx, "get", func() error {
		var opErr error
		existing, opErr = r.store.Get(ctx, ids)
		return opErr
	})
	return existing, err
}

func (r *Retrying) Count(ctx context.Context) (int, error) {
	var count int
	err := r.do(ctx, "count", func() error {
		var opErr error
		count, opErr = r.store.Count(ctx)
		return opErr
	})
	return count, err
}

func (r *Retrying) Delete(ctx context.Context, ids []string) error {
	return r.do(ctx, "delete", func() error {
		return r.store.Delete(ctx, ids)
	})
}

func (r *Retrying) DeleteByDocument(ctx context.Context, docID string) (int, error) {
	var removed int
	err := r.do(ctx, "delete_by_document", func() error {
		var opErr error
		removed, opErr = r.store.DeleteByDocument(ctx, docID)
		return opErr
	})
	return removed, err
}

// Heartbeat is passed through without retry; it is itself the liveness probe.
func (r *Retrying) Heartbeat(ctx context.Context) error {
	return r.store.Heartbeat(ctx)
}
