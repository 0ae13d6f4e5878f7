// Package repositories implements SQLite persistence for jukebox request history.
//
// [EventRepository] records every enqueue, remove and control outcome and serves the newest of
// them back, optionally filtered by kind. Recording is best-effort from the caller's side: a
// failed insert is logged and never fails the queue operation. A retention count bounds the
// table by pruning the oldest rows after each insert.
//
// Sequence numbers give a stable newest-first ordering independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated
// sequence tables.
package repositories
