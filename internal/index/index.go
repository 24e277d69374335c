// Package index maintains the optional secondary store mirroring the
// primary flat-file collection. The index is best-effort and
// non-authoritative: every caller must treat a missing, failing or stale
// index as "no index" and fall back to the primary file.
package index

import "cmdtrack/internal/record"

// Index is a non-authoritative mirror of the execution collection, keyed
// by uuid, used only for fast lookup and consistency reporting.
type Index interface {
	// Save mirrors a created or updated record.
	Save(rec *record.Record) error
	// Delete removes a record's entries.
	Delete(uuid string) error
	// Drop discards the index's backing storage entirely.
	Drop() error
	// Count reports how many records the index currently holds.
	Count() (int, error)
	// Available reports whether the backend can be used at all.
	Available() bool
	// Describe returns a human-readable backend description.
	Describe() string
	Close() error
}
