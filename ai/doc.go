// Package ai defines the embedding service abstraction used by the ingestion
// pipeline. The openai subpackage provides the production implementation for
// OpenAI-compatible APIs; the mock subpackage provides a deterministic test
// double.
package ai
