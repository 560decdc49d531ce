package chunker

import "errors"

var (
	// ErrTokenizerRequired is returned when a tokenizer adapter is not provided.
	ErrTokenizerRequired = errors.New("tokenizer adapter required")

	// ErrInvalidMaxTokens is returned for a non-positive token budget.
	ErrInvalidMaxTokens = errors.New("max tokens must be greater than zero")

	// ErrInvalidOverlap is returned when the overlap is negative or not
	// smaller than the token budget.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than max tokens")
)
