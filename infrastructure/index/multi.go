package index

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/helixml/scholar/domain/search"
)

// RecordSource supplies the relational scan an index builds from.
type RecordSource interface {
	VectoredRecords(ctx context.Context) ([]search.Record, error)
}

// MultiIndex pairs the abstract and author stores and coordinates
// loading, building, and saving them together.
type MultiIndex struct {
	abstracts *Store
	authors   *Store
	logger    *slog.Logger
}

// NewMultiIndex creates a MultiIndex over the two collection stores.
func NewMultiIndex(abstracts, authors *Store, logger *slog.Logger) *MultiIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiIndex{abstracts: abstracts, authors: authors, logger: logger}
}

// Abstracts returns the abstract collection store.
func (m *MultiIndex) Abstracts() *Store { return m.abstracts }

// Authors returns the author collection store.
func (m *MultiIndex) Authors() *Store { return m.authors }

// LoadOrBuild loads both stores from disk, then builds from the
// relational scans only the stores that loaded empty, saving each
// freshly built one. The two builds run concurrently.
func (m *MultiIndex) LoadOrBuild(ctx context.Context, abstracts, authors RecordSource) error {
	if err := m.abstracts.LoadOrCreate(ctx); err != nil {
		return err
	}
	if err := m.authors.LoadOrCreate(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.buildIfEmpty(gctx, m.abstracts, abstracts) })
	g.Go(func() error { return m.buildIfEmpty(gctx, m.authors, authors) })
	return g.Wait()
}

func (m *MultiIndex) buildIfEmpty(ctx context.Context, store *Store, source RecordSource) error {
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	records, err := source.VectoredRecords(ctx)
	if err != nil {
		return fmt.Errorf("scan %s records: %w", store.Name(), err)
	}
	if err := store.BuildFromRecords(ctx, records); err != nil {
		return err
	}
	return store.Save(ctx)
}

// Save persists both stores unconditionally; the second store is
// attempted even when the first fails.
func (m *MultiIndex) Save(ctx context.Context) error {
	errAbstracts := m.abstracts.Save(ctx)
	errAuthors := m.authors.Save(ctx)
	if errAbstracts != nil {
		return errAbstracts
	}
	return errAuthors
}
