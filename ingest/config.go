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

package ingest

import (
	"errors"
	"time"
)

// Config holds the tunables of the ingestion pipeline. Zero values are not
// usable; construct via DefaultConfig or NewConfig.
type Config struct {
	// MaxChunkTokens is the token budget per chunk.
	MaxChunkTokens int

	// OverlapTokens is the token budget shared between adjacent chunks.
	OverlapTokens int

	// BatchSize is the number of chunks embedded and inserted per batch.
	// Small batches keep a mid-document crash cheap to recover from.
	BatchSize int

	// MaxDocumentBytes is the size above which a document goes to the
	// recursive splitter instead of being chunked directly.
	MaxDocumentBytes int64

	// MinSegmentBytes is the floor for recursive split targets; splitting
	// below it produces segments too small to be worth their overhead.
	MinSegmentBytes int64

	// MaxDepth bounds the recursive splitter. A segment at the bound is
	// ingested as-is regardless of size.
	MaxDepth int

	// MaxAttempts is the per-document attempt budget in the work queue,
	// and the retry budget for embedding and store calls.
	MaxAttempts int

	// RetryBaseDelay is the base backoff delay; it doubles on each retry.
	RetryBaseDelay time.Duration
}

// Option configures a Config.
type Option func(*Config)

// WithMaxChunkTokens sets the token budget per chunk.
func WithMaxChunkTokens(n int) Option {
	return func(c *Config) { c.MaxChunkTokens = n }
}

// WithOverlapTokens sets the overlap token budget.
func WithOverlapTokens(n int) Option {
	return func(c *Config) { c.OverlapTokens = n }
}

// WithBatchSize sets the embedding/insert batch size.
func WithBatchSize(n int) Option {
	return func(c *Config) { c.BatchSize = n }
}

// WithMaxDocumentBytes sets the direct-ingestion size ceiling.
func WithMaxDocumentBytes(n int64) Option {
	return func(c *Config) { c.MaxDocumentBytes = n }
}

// WithMinSegmentBytes sets the recursive split target floor.
func WithMinSegmentBytes(n int64) Option {
	return func(c *Config) { c.MinSegmentBytes = n }
}

// WithMaxDepth sets the recursion bound of the splitter.
func WithMaxDepth(n int) Option {
	return func(c *Config) { c.MaxDepth = n }
}

// WithMaxAttempts sets the attempt budget for documents and retries.
func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

// WithRetryBaseDelay sets the base backoff delay.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Config) { c.RetryBaseDelay = d }
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxChunkTokens:   1000,
		OverlapTokens:    200,
		BatchSize:        10,
		MaxDocumentBytes: 10 * 1024 * 1024,
		MinSegmentBytes:  50 * 1024,
		MaxDepth:         5,
		MaxAttempts:      3,
		RetryBaseDelay:   2 * time.Second,
	}
}

// NewConfig creates a Config with defaults and applies the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MaxChunkTokens <= 0 {
		return errors.New("ingest config: MaxChunkTokens must be greater than 0")
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.MaxChunkTokens {
		return errors.New("ingest config: OverlapTokens must be in [0, MaxChunkTokens)")
	}
	if c.BatchSize <= 0 {
		return errors.New("ingest config: BatchSize must be greater than 0")
	}
	if c.MaxDocumentBytes <= 0 {
		return errors.New("ingest config: MaxDocumentBytes must be greater than 0")
	}
	if c.MinSegmentBytes <= 0 {
		return errors.New("ingest config: MinSegmentBytes must be greater than 0")
	}
	if c.MaxDepth <= 0 {
		return errors.New("ingest config: MaxDepth must be greater than 0")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("ingest config: MaxAttempts must be greater than 0")
	}
	if c.RetryBaseDelay <= 0 {
		return errors.New("ingest config: RetryBaseDelay must be greater than 0")
	}
	return nil
}
