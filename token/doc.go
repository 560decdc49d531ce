// Package token provides the tokenizer adapter used to size chunks.
//
// All chunk budgets in the pipeline are expressed in tokens, not bytes,
// because the embedding service's input limits are token-denominated.
// The production adapter wraps the cl100k_base tiktoken encoding; a
// whitespace-word adapter is available for tests and offline use.
package token
