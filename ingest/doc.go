// Package ingest implements the document ingestion pipeline: a worker that
// turns documents into embedded, deduplicated chunks; a recursive splitter
// for oversized documents; a scanner that feeds the work queue; and a runner
// that drains it with crash-safe bookkeeping.
package ingest
