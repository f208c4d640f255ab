package search

import "context"

// Index is one ANN collection: a mapping from external integer ids to
// fixed-dimension vectors, searchable under the collection's metric.
// Implementations serialize all operations through their own lock.
type Index interface {
	// BuildFromRecords replaces the index contents with the given
	// id-vector pairs, as scanned from the relational store. A record
	// whose dimension differs from the index's configured dimension
	// aborts the build: that indicates data corruption, not a
	// recoverable condition.
	BuildFromRecords(ctx context.Context, records []Record) error

	// Save persists the index to its configured path as a whole file.
	// Without a configured path it is a no-op.
	Save(ctx context.Context) error

	// AddOrUpdate upserts vectors by id. ids and vectors must have
	// equal length; when an id repeats within one call the last
	// occurrence wins.
	AddOrUpdate(ctx context.Context, ids []int64, vectors [][]float32) error

	// Remove deletes the given ids; missing ids are silently ignored.
	Remove(ctx context.Context, ids []int64) error

	// Search returns up to k neighbors ranked best-first. An index
	// holding fewer than k vectors returns what it has.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)

	// Count returns the number of indexed vectors.
	Count(ctx context.Context) (int, error)
}
