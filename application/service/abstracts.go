package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
	"github.com/helixml/scholar/domain/search"
)

// AbstractDetail is one abstract with its linked authors and categories.
type AbstractDetail struct {
	Abstract   corpus.Abstract
	Authors    []corpus.Author
	Categories []corpus.Category
}

// AbstractPatch carries a partial update. Nil pointers leave the stored
// value alone; a non-nil PublishedAt holding the zero time clears the
// date. Categories replace the linked set only when SetCategories is
// true.
type AbstractPatch struct {
	Title         *string
	Body          *string
	Event         *string
	PublishedAt   *time.Time
	Categories    []CategoryRef
	SetCategories bool
}

// UpdateResult reports one partial update. Reembedded is true when the
// text changed and a new vector was stored.
type UpdateResult struct {
	ID         int64
	Reembedded bool
	Sync       SyncReport
}

// DeleteResult reports one deletion.
type DeleteResult struct {
	Deleted int64
	Sync    SyncReport
}

// Abstracts reads, lists, and mutates abstracts.
type Abstracts struct {
	store      corpus.AbstractStore
	categories corpus.CategoryStore
	embedder   search.Embedder
	sync       *Synchronizer
	logger     *slog.Logger
}

// NewAbstracts creates an Abstracts service. A nil embedder disables
// re-embedding on update; text edits then keep the stored vector.
func NewAbstracts(
	store corpus.AbstractStore,
	categories corpus.CategoryStore,
	embedder search.Embedder,
	sync *Synchronizer,
	logger *slog.Logger,
) *Abstracts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Abstracts{
		store:      store,
		categories: categories,
		embedder:   embedder,
		sync:       sync,
		logger:     logger,
	}
}

// Get returns one abstract with its authors and categories.
func (s Abstracts) Get(ctx context.Context, id int64) (AbstractDetail, error) {
	abstract, err := s.store.Get(ctx, id)
	if err != nil {
		if missing(err) {
			return AbstractDetail{}, fmt.Errorf("abstract %d: %w", id, ErrNotFound)
		}
		return AbstractDetail{}, fmt.Errorf("load abstract %d: %w", id, err)
	}

	authors, err := s.store.AuthorsByAbstractIDs(ctx, []int64{id})
	if err != nil {
		return AbstractDetail{}, fmt.Errorf("load abstract authors: %w", err)
	}
	categories, err := s.store.CategoriesByAbstractIDs(ctx, []int64{id})
	if err != nil {
		return AbstractDetail{}, fmt.Errorf("load abstract categories: %w", err)
	}
	return AbstractDetail{Abstract: abstract, Authors: authors[id], Categories: categories[id]}, nil
}

// List returns one page of abstracts ordered by recency, newest first
// with undated rows last.
func (s Abstracts) List(ctx context.Context, opts ...QueryOption) (AbstractPage, error) {
	cfg := newQueryConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	page := AbstractPage{Page: cfg.page, PageSize: cfg.pageSize, Hits: []AbstractHit{}}

	listOpts := repository.WithRecencyOrder()
	listOpts = append(listOpts, repository.WithPagination(cfg.pageSize, (cfg.page-1)*cfg.pageSize)...)

	rows, err := s.store.List(ctx, listOpts...)
	if err != nil {
		return AbstractPage{}, fmt.Errorf("list abstracts: %w", err)
	}
	if len(rows) == 0 {
		return page, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID()
	}
	categories, err := s.store.CategoriesByAbstractIDs(ctx, ids)
	if err != nil {
		return AbstractPage{}, fmt.Errorf("load result categories: %w", err)
	}
	for _, row := range rows {
		page.Hits = append(page.Hits, AbstractHit{Abstract: row, Categories: categories[row.ID()]})
	}
	return page, nil
}

// Update applies a partial update. When the title or body changes and an
// embedding backend is available, the abstract is re-embedded and the
// synchronizer refreshes its index entry and the author vectors derived
// from it.
func (s Abstracts) Update(ctx context.Context, id int64, patch AbstractPatch) (UpdateResult, error) {
	abstract, err := s.store.Get(ctx, id)
	if err != nil {
		if missing(err) {
			return UpdateResult{}, fmt.Errorf("abstract %d: %w", id, ErrNotFound)
		}
		return UpdateResult{}, fmt.Errorf("load abstract %d: %w", id, err)
	}

	textChanged := patch.Title != nil || patch.Body != nil
	if patch.Title != nil {
		abstract = abstract.WithTitle(*patch.Title)
	}
	if patch.Body != nil {
		abstract = abstract.WithBody(*patch.Body)
	}
	if patch.Event != nil {
		abstract = abstract.WithEvent(*patch.Event)
	}
	if patch.PublishedAt != nil {
		abstract = abstract.WithPublishedAt(*patch.PublishedAt)
	}

	abstract, err = s.store.Save(ctx, abstract)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("save abstract %d: %w", id, err)
	}

	if patch.SetCategories {
		categoryIDs, _, err := resolveCategories(ctx, s.categories, patch.Categories, s.logger)
		if err != nil {
			return UpdateResult{}, err
		}
		if err := s.store.ReplaceCategories(ctx, id, categoryIDs); err != nil {
			return UpdateResult{}, fmt.Errorf("replace categories: %w", err)
		}
	}

	// An unchanged vector needs no index work, so the sync is vacuously
	// complete.
	result := UpdateResult{ID: id, Sync: SyncReport{Committed: true, IndexSynced: true}}
	if !textChanged {
		s.logger.Info("abstract updated", "id", id, "reembedded", false)
		return result, nil
	}
	if s.embedder == nil {
		s.logger.Warn("embedding backend unavailable, keeping stale vector", "id", id)
		return result, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{abstract.EmbeddingText()})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("re-embed abstract %d: %w", id, err)
	}
	if len(vectors) != 1 {
		return UpdateResult{}, fmt.Errorf("re-embed abstract %d: got %d vectors for one text", id, len(vectors))
	}
	if _, err := s.store.Save(ctx, abstract.WithVector(vectors[0])); err != nil {
		return UpdateResult{}, fmt.Errorf("save embedding for abstract %d: %w", id, err)
	}

	report, err := s.sync.Apply(ctx, []int64{id}, nil)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("synchronize after update: %w", err)
	}
	result.Reembedded = true
	result.Sync = report
	s.logger.Info("abstract updated", "id", id, "reembedded", true, "index_synced", report.IndexSynced)
	return result, nil
}

// Delete removes the abstract, its links, and its index entry. Authors
// left without embedded abstracts drop out of the author index.
func (s Abstracts) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("check abstract %d: %w", id, err)
	}
	if !exists {
		return DeleteResult{}, fmt.Errorf("abstract %d: %w", id, ErrNotFound)
	}

	// Capture the linked authors before the links go away with the row.
	affected, err := s.store.LinkedAuthorIDs(ctx, []int64{id})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("load author links: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return DeleteResult{}, fmt.Errorf("delete abstract %d: %w", id, err)
	}

	// The deleted id no longer resolves, so the synchronizer turns it
	// into an index removal.
	report, err := s.sync.Apply(ctx, []int64{id}, affected)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("synchronize after delete: %w", err)
	}

	s.logger.Info("abstract deleted", "id", id,
		"authors_affected", len(affected), "index_synced", report.IndexSynced)
	return DeleteResult{Deleted: id, Sync: report}, nil
}
