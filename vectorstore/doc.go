// Package vectorstore provides the vector database contract behind the
// ingestion pipeline, a Chroma HTTP implementation, an in-memory
// implementation for tests, and a retrying decorator that verifies store
// liveness between attempts.
package vectorstore
