// Package badger provides BadgerDB-backed implementations of the storage
// repositories. All state transitions happen inside a single transaction, so
// a crash between any two operations leaves the queue and checkpoint ledgers
// consistent.
package badger
