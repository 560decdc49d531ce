// Package storage defines the durable repositories behind the ingestion
// pipeline: the work queue and the checkpoint ledger.
//
// The interfaces here are backend-agnostic; the badger subpackage provides
// the production implementation. Records are serialized with the MUS binary
// format.
package storage
