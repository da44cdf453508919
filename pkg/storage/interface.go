// Package storage defines the persistence interface the history service
// relies on. It abstracts the capped, ordered scan-outcome log so different
// backends (e.g. SQLite) can provide concrete implementations.
package storage

import (
	"context"

	"filescan/pkg/domain"
)

// HistoryStorage defines the operations on the durable scan-outcome log.
// The log is ordered most-recent-first and capped: inserting beyond the cap
// evicts the oldest entries. Records are immutable once inserted.
type HistoryStorage interface {
	// List returns all retained records, most recent first. Rows that cannot
	// be decoded are discarded, never surfaced as errors.
	List(ctx context.Context) ([]domain.HistoryItem, error)
	// Insert stores a fully populated record at the head of the log and then
	// truncates the log to the configured cap, atomically.
	Insert(ctx context.Context, item domain.HistoryItem) error
	// Remove deletes a single record by id. It reports whether a record was
	// actually removed.
	Remove(ctx context.Context, id domain.HistoryID) (bool, error)
	// Clear deletes every record and returns the number removed.
	Clear(ctx context.Context) (int64, error)
	// Count returns the number of retained records.
	Count(ctx context.Context) (int64, error)
	// Fingerprint returns an opaque token that changes whenever the persisted
	// log changes. Watchers compare tokens to detect writes from other
	// processes sharing the same file.
	Fingerprint(ctx context.Context) (string, error)
}

// Storage is a HistoryStorage with lifecycle management.
type Storage interface {
	HistoryStorage

	// Close releases the underlying database handle. After Close, the
	// instance should not be used.
	Close() error
}
