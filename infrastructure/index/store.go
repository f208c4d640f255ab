package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/helixml/scholar/domain/search"
)

// Store owns one index collection. Every operation is serialized
// through the store's own lock, so mutation batches and searches on
// different collections never block each other.
type Store struct {
	mu     sync.Mutex
	name   string
	dim    int
	metric search.Metric
	path   string
	flat   *flatIndex
	logger *slog.Logger
}

// NewStore creates a Store for one collection. name appears in logs
// and errors; an empty path disables persistence.
func NewStore(name string, dim int, metric search.Metric, path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		name:   name,
		dim:    dim,
		metric: metric,
		path:   path,
		flat:   newFlatIndex(dim, metric),
		logger: logger,
	}
}

// Name returns the collection name.
func (s *Store) Name() string { return s.name }

// Dimension returns the configured vector dimension.
func (s *Store) Dimension() int { return s.dim }

// Metric returns the configured metric.
func (s *Store) Metric() search.Metric { return s.metric }

// Path returns the persistence path, empty when persistence is off.
func (s *Store) Path() string { return s.path }

// LoadOrCreate initializes the in-memory index from the persisted file.
// A usable wrapped file is adopted as-is; a legacy file with zero
// entries is wrapped; a legacy file with entries, a corrupt file, or a
// file whose dimension or metric disagrees with the configuration is
// discarded with a warning and replaced by a fresh empty index. The
// relational store is never touched: the file is only a cache.
func (s *Store) LoadOrCreate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		s.flat = newFlatIndex(s.dim, s.metric)
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no persisted index, starting empty", "index", s.name, "path", s.path)
		s.flat = newFlatIndex(s.dim, s.metric)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s index: %w", s.name, err)
	}

	flat, legacy, err := decodeIndex(data)
	switch {
	case err != nil:
		s.discard("unreadable index file", err)
	case legacy && flat.count() == 0:
		s.logger.Info("wrapping legacy empty index file", "index", s.name, "path", s.path)
		s.flat = newFlatIndex(s.dim, s.metric)
		return nil
	case legacy:
		s.discard("legacy index file holds entries", fmt.Errorf("%d entries", flat.count()))
	case flat.dim != s.dim:
		s.discard("index file dimension mismatch", fmt.Errorf("file %d, configured %d", flat.dim, s.dim))
	case flat.metric != s.metric:
		s.discard("index file metric mismatch", fmt.Errorf("file %s, configured %s", flat.metric, s.metric))
	default:
		s.flat = flat
		s.logger.Info("loaded index", "index", s.name, "entries", flat.count(), "path", s.path)
		return nil
	}

	s.flat = newFlatIndex(s.dim, s.metric)
	return nil
}

// discard logs why the persisted file is unusable and removes it.
func (s *Store) discard(reason string, cause error) {
	s.logger.Warn("discarding persisted index, starting empty",
		"index", s.name, "path", s.path, "reason", reason, "detail", cause)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("could not remove index file", "index", s.name, "error", err)
	}
}

// BuildFromRecords replaces the index contents with the given records.
// A record with the wrong dimension aborts the build and leaves the
// previous contents in place: a bad stored vector means the dataset is
// corrupt, not that the index should silently shrink.
func (s *Store) BuildFromRecords(_ context.Context, records []search.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flat := newFlatIndex(s.dim, s.metric)
	for _, rec := range records {
		vector := rec.Vector()
		if len(vector) != s.dim {
			return fmt.Errorf("%s index: record %d has dimension %d, expected %d",
				s.name, rec.ID(), len(vector), s.dim)
		}
		if s.metric.Normalizes() {
			vector = search.Normalize(vector)
		}
		flat.remove(rec.ID())
		flat.add(rec.ID(), vector)
	}

	s.flat = flat
	s.logger.Info("built index", "index", s.name, "entries", flat.count())
	return nil
}

// Save persists the index to its path as a whole file. Without a path
// it is a no-op.
func (s *Store) Save(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save %s index: %w", s.name, err)
	}
	if err := os.WriteFile(s.path, encodeIndex(s.flat), 0o644); err != nil {
		return fmt.Errorf("save %s index: %w", s.name, err)
	}
	s.logger.Debug("saved index", "index", s.name, "entries", s.flat.count(), "path", s.path)
	return nil
}

// AddOrUpdate upserts vectors by id, as remove-then-insert per id.
// When an id repeats within one call the last occurrence wins.
func (s *Store) AddOrUpdate(_ context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%s index: %d ids for %d vectors", s.name, len(ids), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, vector := range vectors {
		if len(vector) != s.dim {
			return fmt.Errorf("%s index: vector for id %d has dimension %d, expected %d",
				s.name, ids[i], len(vector), s.dim)
		}
	}
	for i, id := range ids {
		vector := vectors[i]
		if s.metric.Normalizes() {
			vector = search.Normalize(vector)
		}
		s.flat.remove(id)
		s.flat.add(id, vector)
	}
	return nil
}

// Remove deletes the given ids; missing ids are silently ignored.
func (s *Store) Remove(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.flat.remove(id)
	}
	return nil
}

// Search returns up to k neighbors ranked best-first: ascending
// distance for L2, descending similarity for inner product.
func (s *Store) Search(_ context.Context, query []float32, k int) ([]search.Neighbor, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%s index: query has dimension %d, expected %d",
			s.name, len(query), s.dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.metric.Normalizes() {
		query = search.Normalize(query)
	}
	return s.flat.search(query, k), nil
}

// Count returns the number of indexed vectors.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flat.count(), nil
}
