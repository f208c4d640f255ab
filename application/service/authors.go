package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
)

// AuthorAbstract is one abstract in an author's profile with its
// categories.
type AuthorAbstract struct {
	Abstract   corpus.Abstract
	Categories []corpus.Category
}

// AuthorDetail is one author with their abstracts, newest first.
type AuthorDetail struct {
	Author    corpus.Author
	Abstracts []AuthorAbstract
}

// AuthorPatch carries the mutable author fields. Nil pointers leave
// the current value in place.
type AuthorPatch struct {
	Name      *string
	Recompute bool
}

// AuthorUpdateResult reports an applied author update.
type AuthorUpdateResult struct {
	ID         int64
	Recomputed bool
	Sync       SyncReport
}

// AuthorDeleteResult reports an author deletion.
type AuthorDeleteResult struct {
	Deleted int64
	Sync    SyncReport
}

// Authors reads, lists, and mutates authors.
type Authors struct {
	authors   corpus.AuthorStore
	abstracts corpus.AbstractStore
	sync      *Synchronizer
	logger    *slog.Logger
}

// NewAuthors creates an Authors service.
func NewAuthors(authors corpus.AuthorStore, abstracts corpus.AbstractStore, sync *Synchronizer, logger *slog.Logger) *Authors {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authors{authors: authors, abstracts: abstracts, sync: sync, logger: logger}
}

// Get returns one author with their abstracts ordered by recency.
func (s Authors) Get(ctx context.Context, id int64) (AuthorDetail, error) {
	author, err := s.authors.Get(ctx, id)
	if err != nil {
		if missing(err) {
			return AuthorDetail{}, fmt.Errorf("author %d: %w", id, ErrNotFound)
		}
		return AuthorDetail{}, fmt.Errorf("load author %d: %w", id, err)
	}

	rows, err := s.abstracts.ByAuthor(ctx, id)
	if err != nil {
		return AuthorDetail{}, fmt.Errorf("load author abstracts: %w", err)
	}

	detail := AuthorDetail{Author: author, Abstracts: make([]AuthorAbstract, 0, len(rows))}
	if len(rows) == 0 {
		return detail, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID()
	}
	categories, err := s.abstracts.CategoriesByAbstractIDs(ctx, ids)
	if err != nil {
		return AuthorDetail{}, fmt.Errorf("load abstract categories: %w", err)
	}
	for _, row := range rows {
		detail.Abstracts = append(detail.Abstracts, AuthorAbstract{
			Abstract:   row,
			Categories: categories[row.ID()],
		})
	}
	return detail, nil
}

// List returns one page of authors ordered by name. No scores; ranked
// author results come from the search service.
func (s Authors) List(ctx context.Context, opts ...QueryOption) (AuthorPage, error) {
	cfg := newQueryConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	page := AuthorPage{Page: cfg.page, PageSize: cfg.pageSize, Hits: []AuthorHit{}}

	listOpts := []repository.Option{
		repository.WithOrderAsc("name"),
		repository.WithOrderAsc("id"),
	}
	listOpts = append(listOpts, repository.WithPagination(cfg.pageSize, (cfg.page-1)*cfg.pageSize)...)

	rows, err := s.authors.List(ctx, listOpts...)
	if err != nil {
		return AuthorPage{}, fmt.Errorf("list authors: %w", err)
	}
	if len(rows) == 0 {
		return page, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID()
	}
	counts, err := s.authors.AbstractCounts(ctx, ids)
	if err != nil {
		return AuthorPage{}, fmt.Errorf("load abstract counts: %w", err)
	}
	for _, row := range rows {
		page.Hits = append(page.Hits, AuthorHit{Author: row, AbstractCount: counts[row.ID()]})
	}
	return page, nil
}

// Update renames an author and optionally recomputes their aggregate
// vector from the currently embedded abstracts. An author whose
// abstracts all lack vectors ends up with no aggregate and leaves the
// index.
func (s Authors) Update(ctx context.Context, id int64, patch AuthorPatch) (AuthorUpdateResult, error) {
	author, err := s.authors.Get(ctx, id)
	if err != nil {
		if missing(err) {
			return AuthorUpdateResult{}, fmt.Errorf("author %d: %w", id, ErrNotFound)
		}
		return AuthorUpdateResult{}, fmt.Errorf("load author %d: %w", id, err)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return AuthorUpdateResult{}, fmt.Errorf("author name must not be blank: %w", ErrValidation)
		}
		if _, err := s.authors.Save(ctx, author.WithName(name)); err != nil {
			return AuthorUpdateResult{}, fmt.Errorf("save author %d: %w", id, err)
		}
	}

	result := AuthorUpdateResult{ID: id, Sync: SyncReport{Committed: true, IndexSynced: true}}
	if patch.Recompute {
		report, err := s.sync.Apply(ctx, nil, []int64{id})
		if err != nil {
			return AuthorUpdateResult{}, fmt.Errorf("recompute author %d: %w", id, err)
		}
		result.Recomputed = true
		result.Sync = report
	}

	s.logger.InfoContext(ctx, "author updated",
		slog.Int64("id", id),
		slog.Bool("renamed", patch.Name != nil),
		slog.Bool("recomputed", result.Recomputed))
	return result, nil
}

// Delete removes an author together with their abstract links.
// Abstracts keep their remaining authors. With the links gone the
// sync pass finds no vectors for the author, clears the aggregate,
// and removes the index entry.
func (s Authors) Delete(ctx context.Context, id int64) (AuthorDeleteResult, error) {
	ok, err := s.authors.Exists(ctx, id)
	if err != nil {
		return AuthorDeleteResult{}, fmt.Errorf("check author %d: %w", id, err)
	}
	if !ok {
		return AuthorDeleteResult{}, fmt.Errorf("author %d: %w", id, ErrNotFound)
	}

	if err := s.authors.Delete(ctx, id); err != nil {
		return AuthorDeleteResult{}, fmt.Errorf("delete author %d: %w", id, err)
	}

	report, err := s.sync.Apply(ctx, nil, []int64{id})
	if err != nil {
		return AuthorDeleteResult{}, fmt.Errorf("sync author %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "author deleted", slog.Int64("id", id))
	return AuthorDeleteResult{Deleted: id, Sync: report}, nil
}
