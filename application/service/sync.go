package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/search"
)

// SyncReport describes one synchronization pass. Committed reports the
// relational outcome, IndexSynced whether every index mutation after the
// commit succeeded. The counters reflect the relational decisions; when
// IndexSynced is false their index-side application failed and Err says
// how.
type SyncReport struct {
	Committed        bool
	IndexSynced      bool
	AbstractsIndexed int
	AbstractsRemoved int
	AuthorsUpdated   int
	AuthorsCleared   int
	Err              error
}

// Synchronizer propagates relational changes to the vector indices. The
// affected author vectors commit in one relational transaction before any
// index call; index failures after that commit are reported in the
// SyncReport, never rolled back.
type Synchronizer struct {
	abstracts     corpus.AbstractStore
	authors       corpus.AuthorStore
	abstractIndex search.Index
	authorIndex   search.Index
	logger        *slog.Logger
}

// NewSynchronizer creates a Synchronizer. Nil indices are tolerated:
// relational writes still happen and the report flags the skipped index
// side.
func NewSynchronizer(
	abstracts corpus.AbstractStore,
	authors corpus.AuthorStore,
	abstractIndex search.Index,
	authorIndex search.Index,
	logger *slog.Logger,
) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		abstracts:     abstracts,
		authors:       authors,
		abstractIndex: abstractIndex,
		authorIndex:   authorIndex,
		logger:        logger,
	}
}

// Apply synchronizes both indices after the given abstracts and authors
// changed. Abstract rows and their vectors must already be committed by
// the caller; Apply recomputes the affected author mean vectors, commits
// them in one transaction, and only then mutates the indices. An abstract
// id whose row is gone or vectorless turns into an index removal.
func (s Synchronizer) Apply(ctx context.Context, abstractIDs, authorIDs []int64) (SyncReport, error) {
	abstractIDs = dedupKeepLast(abstractIDs)

	changedAuthors, err := s.changedAuthors(ctx, abstractIDs, authorIDs)
	if err != nil {
		return SyncReport{}, err
	}

	rows, err := s.abstracts.ByIDs(ctx, abstractIDs)
	if err != nil {
		return SyncReport{}, fmt.Errorf("load changed abstracts: %w", err)
	}
	present := make(map[int64]corpus.Abstract, len(rows))
	for _, row := range rows {
		present[row.ID()] = row
	}

	var (
		absUpsertIDs  []int64
		absUpsertVecs [][]float32
		absRemoveIDs  []int64
	)
	for _, id := range abstractIDs {
		if row, ok := present[id]; ok && row.HasVector() {
			absUpsertIDs = append(absUpsertIDs, id)
			absUpsertVecs = append(absUpsertVecs, row.Vector())
			continue
		}
		absRemoveIDs = append(absRemoveIDs, id)
	}

	var (
		updates        []corpus.VectorUpdate
		authUpsertIDs  []int64
		authUpsertVecs [][]float32
		authRemoveIDs  []int64
	)
	for _, authorID := range changedAuthors {
		vectors, err := s.abstracts.VectorsByAuthor(ctx, authorID)
		if err != nil {
			return SyncReport{}, fmt.Errorf("vectors for author %d: %w", authorID, err)
		}
		if len(vectors) == 0 {
			updates = append(updates, corpus.NewVectorClear(authorID))
			authRemoveIDs = append(authRemoveIDs, authorID)
			continue
		}
		mean := search.Mean(vectors)
		updates = append(updates, corpus.NewVectorUpdate(authorID, mean))
		authUpsertIDs = append(authUpsertIDs, authorID)
		authUpsertVecs = append(authUpsertVecs, mean)
	}

	// The one relational commit. Nothing touches the indices before it.
	if err := s.authors.SaveVectors(ctx, updates); err != nil {
		return SyncReport{}, fmt.Errorf("commit author vectors: %w", err)
	}

	report := SyncReport{
		Committed:        true,
		IndexSynced:      true,
		AbstractsIndexed: len(absUpsertIDs),
		AbstractsRemoved: len(absRemoveIDs),
		AuthorsUpdated:   len(authUpsertIDs),
		AuthorsCleared:   len(authRemoveIDs),
	}

	var indexErrs []error
	apply := func(op string, fn func() error) {
		if err := fn(); err != nil {
			s.logger.Warn("index sync failed", "op", op, "error", err)
			indexErrs = append(indexErrs, fmt.Errorf("%s: %w", op, err))
		}
	}

	if len(absUpsertIDs) > 0 || len(absRemoveIDs) > 0 {
		if s.abstractIndex == nil {
			s.logger.Warn("abstract index unavailable, skipping index sync")
			indexErrs = append(indexErrs, fmt.Errorf("abstract index: %w", ErrIndexUnavailable))
		} else {
			if len(absUpsertIDs) > 0 {
				apply("abstract upsert", func() error {
					return s.abstractIndex.AddOrUpdate(ctx, absUpsertIDs, absUpsertVecs)
				})
			}
			if len(absRemoveIDs) > 0 {
				apply("abstract remove", func() error {
					return s.abstractIndex.Remove(ctx, absRemoveIDs)
				})
			}
		}
	}

	if len(authUpsertIDs) > 0 || len(authRemoveIDs) > 0 {
		if s.authorIndex == nil {
			s.logger.Warn("author index unavailable, skipping index sync")
			indexErrs = append(indexErrs, fmt.Errorf("author index: %w", ErrIndexUnavailable))
		} else {
			if len(authUpsertIDs) > 0 {
				apply("author upsert", func() error {
					return s.authorIndex.AddOrUpdate(ctx, authUpsertIDs, authUpsertVecs)
				})
			}
			if len(authRemoveIDs) > 0 {
				apply("author remove", func() error {
					return s.authorIndex.Remove(ctx, authRemoveIDs)
				})
			}
		}
	}

	if len(indexErrs) > 0 {
		report.IndexSynced = false
		report.Err = errors.Join(indexErrs...)
	}

	s.logger.Debug("sync applied",
		"abstracts_indexed", report.AbstractsIndexed,
		"abstracts_removed", report.AbstractsRemoved,
		"authors_updated", report.AuthorsUpdated,
		"authors_cleared", report.AuthorsCleared,
		"index_synced", report.IndexSynced)
	return report, nil
}

// changedAuthors unions the authors linked to the changed abstracts with
// the explicitly named ones, preserving first-seen order.
func (s Synchronizer) changedAuthors(ctx context.Context, abstractIDs, authorIDs []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(authorIDs))
	out := make([]int64, 0, len(authorIDs))
	add := func(ids []int64) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	add(authorIDs)
	if len(abstractIDs) > 0 {
		linked, err := s.abstracts.LinkedAuthorIDs(ctx, abstractIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve linked authors: %w", err)
		}
		add(linked)
	}
	return out, nil
}

// dedupKeepLast removes duplicate ids, keeping each id at the position of
// its last occurrence.
func dedupKeepLast(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if _, ok := seen[ids[i]]; ok {
			continue
		}
		seen[ids[i]] = struct{}{}
		out = append(out, ids[i])
	}
	slices.Reverse(out)
	return out
}
