// Package service provides application layer services that orchestrate
// domain operations.
package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
	"github.com/helixml/scholar/domain/search"
	"github.com/helixml/scholar/internal/config"
)

// QueryOption configures a search request.
type QueryOption func(*queryConfig)

// queryConfig holds search parameters.
type queryConfig struct {
	page       int
	pageSize   int
	categories []int64
	topK       int
	showScores *bool
	scoreMode  string
}

// newQueryConfig creates a queryConfig with defaults.
func newQueryConfig() *queryConfig {
	return &queryConfig{
		page:     1,
		pageSize: config.DefaultPageSize,
		topK:     config.DefaultTopK,
	}
}

// WithPage sets the 1-based page index.
func WithPage(n int) QueryOption {
	return func(c *queryConfig) {
		if n >= 1 {
			c.page = n
		}
	}
}

// WithPageSize sets the page size, capped at the configured maximum.
func WithPageSize(n int) QueryOption {
	return func(c *queryConfig) {
		if n >= 1 {
			c.pageSize = min(n, config.MaxPageSize)
		}
	}
}

// WithCategories restricts abstract results to those linked to any of
// the given categories.
func WithCategories(ids ...int64) QueryOption {
	return func(c *queryConfig) {
		c.categories = ids
	}
}

// WithTopK sets the neighbor count for similarity lookups, capped at the
// configured maximum.
func WithTopK(n int) QueryOption {
	return func(c *queryConfig) {
		if n >= 1 {
			c.topK = min(n, config.MaxTopK)
		}
	}
}

// WithScores toggles score attachment for this request, overriding the
// runtime default.
func WithScores(show bool) QueryOption {
	return func(c *queryConfig) {
		c.showScores = &show
	}
}

// WithScoreMode sets the score mode for this request. Unknown modes are
// ignored and the runtime default applies.
func WithScoreMode(mode string) QueryOption {
	return func(c *queryConfig) {
		if ValidScoreMode(mode) {
			c.scoreMode = mode
		}
	}
}

// AbstractHit is one ranked abstract result. Score is nil when score
// attachment is off for the request.
type AbstractHit struct {
	Abstract   corpus.Abstract
	Categories []corpus.Category
	Score      *float64
}

// AbstractPage is one page of abstract results.
type AbstractPage struct {
	Keyword  string
	Page     int
	PageSize int
	Hits     []AbstractHit
}

// AuthorHit is one ranked author result. Score is nil when score
// attachment is off or the cosine mode has no stored vector to compare.
type AuthorHit struct {
	Author        corpus.Author
	AbstractCount int
	Score         *float64
}

// AuthorPage is one page of author results.
type AuthorPage struct {
	Keyword  string
	Page     int
	PageSize int
	Hits     []AuthorHit
}

// Search plans and executes similarity queries over the corpus. A
// keyword is embedded once, the index is oversampled to survive
// pagination and category filtering, and the relational store is only
// consulted for the rows of the final page.
type Search struct {
	abstracts     corpus.AbstractStore
	authors       corpus.AuthorStore
	abstractIndex search.Index
	authorIndex   search.Index
	embedder      search.Embedder
	settings      *Settings
	oversample    int
	closed        *atomic.Bool
	logger        *slog.Logger
}

// NewSearch creates a Search service. A nil index or embedder disables
// keyword queries; filter listings keep working.
func NewSearch(
	abstracts corpus.AbstractStore,
	authors corpus.AuthorStore,
	abstractIndex search.Index,
	authorIndex search.Index,
	embedder search.Embedder,
	settings *Settings,
	oversampleFactor int,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Search {
	if settings == nil {
		settings = NewSettings(false, config.DefaultScoreMode)
	}
	if oversampleFactor < 1 {
		oversampleFactor = config.DefaultOversampleFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{
		abstracts:     abstracts,
		authors:       authors,
		abstractIndex: abstractIndex,
		authorIndex:   authorIndex,
		embedder:      embedder,
		settings:      settings,
		oversample:    oversampleFactor,
		closed:        closed,
		logger:        logger,
	}
}

// SearchAbstracts answers one abstract query. A blank keyword with a
// category filter lists the matching rows by recency without scores; a
// blank keyword without a filter returns ErrEmptyQuery, plain listing is
// a separate operation.
func (s Search) SearchAbstracts(ctx context.Context, keyword string, opts ...QueryOption) (AbstractPage, error) {
	if s.closed != nil && s.closed.Load() {
		return AbstractPage{}, ErrClientClosed
	}

	cfg := newQueryConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	page := AbstractPage{Keyword: keyword, Page: cfg.page, PageSize: cfg.pageSize, Hits: []AbstractHit{}}

	// nil means no filter was requested; an empty set means the filter
	// matched nothing.
	var filtered []int64
	hasFilter := len(cfg.categories) > 0
	if hasFilter {
		ids, err := s.abstracts.IDsByCategories(ctx, cfg.categories)
		if err != nil {
			return AbstractPage{}, fmt.Errorf("resolve category filter: %w", err)
		}
		filtered = ids
	}

	if strings.TrimSpace(keyword) == "" {
		if !hasFilter {
			return AbstractPage{}, ErrEmptyQuery
		}
		if len(filtered) == 0 {
			return page, nil
		}
		return s.listFiltered(ctx, page, filtered)
	}

	if s.abstractIndex == nil || s.embedder == nil {
		return AbstractPage{}, ErrIndexUnavailable
	}

	query, err := s.embedQuery(ctx, keyword)
	if err != nil {
		return AbstractPage{}, err
	}

	ranked, distances, err := s.rankedIDs(ctx, s.abstractIndex, query, cfg)
	if err != nil {
		return AbstractPage{}, err
	}
	if hasFilter {
		ranked = intersect(ranked, filtered)
	}

	ids := paginate(ranked, cfg.page, cfg.pageSize)
	if len(ids) == 0 {
		return page, nil
	}

	rows, err := s.abstracts.ByIDs(ctx, ids)
	if err != nil {
		return AbstractPage{}, fmt.Errorf("load result rows: %w", err)
	}
	rows = orderByRank(rows, ids, corpus.Abstract.ID)

	categories, err := s.abstracts.CategoriesByAbstractIDs(ctx, ids)
	if err != nil {
		return AbstractPage{}, fmt.Errorf("load result categories: %w", err)
	}

	showScores, mode := s.scoring(cfg)
	for _, row := range rows {
		hit := AbstractHit{Abstract: row, Categories: categories[row.ID()]}
		if showScores {
			hit.Score = roundedScore(s.abstractScore(mode, query, row, distances))
		}
		page.Hits = append(page.Hits, hit)
	}

	s.logger.Debug("abstract search",
		"keyword", keyword, "page", cfg.page, "page_size", cfg.pageSize,
		"filtered", hasFilter, "results", len(page.Hits))
	return page, nil
}

// SearchAuthors answers one author query. An uninitialized or empty
// author index yields an empty page, not an error.
func (s Search) SearchAuthors(ctx context.Context, keyword string, opts ...QueryOption) (AuthorPage, error) {
	if s.closed != nil && s.closed.Load() {
		return AuthorPage{}, ErrClientClosed
	}

	cfg := newQueryConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	page := AuthorPage{Keyword: keyword, Page: cfg.page, PageSize: cfg.pageSize, Hits: []AuthorHit{}}

	if strings.TrimSpace(keyword) == "" {
		return AuthorPage{}, ErrEmptyQuery
	}
	if s.authorIndex == nil || s.embedder == nil {
		return page, nil
	}
	if n, err := s.authorIndex.Count(ctx); err != nil {
		return AuthorPage{}, fmt.Errorf("author index count: %w", err)
	} else if n == 0 {
		return page, nil
	}

	query, err := s.embedQuery(ctx, keyword)
	if err != nil {
		return AuthorPage{}, err
	}

	ranked, distances, err := s.rankedIDs(ctx, s.authorIndex, query, cfg)
	if err != nil {
		return AuthorPage{}, err
	}
	ids := paginate(ranked, cfg.page, cfg.pageSize)
	if len(ids) == 0 {
		return page, nil
	}

	rows, err := s.authors.ByIDs(ctx, ids)
	if err != nil {
		return AuthorPage{}, fmt.Errorf("load result rows: %w", err)
	}
	rows = orderByRank(rows, ids, corpus.Author.ID)

	counts, err := s.authors.AbstractCounts(ctx, ids)
	if err != nil {
		return AuthorPage{}, fmt.Errorf("load abstract counts: %w", err)
	}

	showScores, mode := s.scoring(cfg)
	for _, row := range rows {
		hit := AuthorHit{Author: row, AbstractCount: counts[row.ID()]}
		if showScores {
			hit.Score = s.authorScore(mode, query, row, distances)
		}
		page.Hits = append(page.Hits, hit)
	}

	s.logger.Debug("author search",
		"keyword", keyword, "page", cfg.page, "page_size", cfg.pageSize,
		"results", len(page.Hits))
	return page, nil
}

// SimilarAuthors returns the authors nearest to the given one in vector
// space, excluding the author themselves. An unknown author, one without
// a stored vector, and an uninitialized or empty index all yield an
// empty result.
func (s Search) SimilarAuthors(ctx context.Context, authorID int64, opts ...QueryOption) ([]AuthorHit, error) {
	if s.closed != nil && s.closed.Load() {
		return nil, ErrClientClosed
	}

	cfg := newQueryConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	hits := []AuthorHit{}

	author, err := s.authors.Get(ctx, authorID)
	if err != nil {
		if missing(err) {
			return hits, nil
		}
		return nil, fmt.Errorf("load author: %w", err)
	}
	if !author.HasVector() {
		return hits, nil
	}
	if s.authorIndex == nil {
		return hits, nil
	}
	if n, err := s.authorIndex.Count(ctx); err != nil {
		return nil, fmt.Errorf("author index count: %w", err)
	} else if n == 0 {
		return hits, nil
	}

	// One extra neighbor covers the author reappearing as their own
	// nearest match.
	query := author.Vector()
	neighbors, err := s.authorIndex.Search(ctx, query, cfg.topK+1)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	ids := make([]int64, 0, len(neighbors))
	distances := make(map[int64]float32, len(neighbors))
	for _, n := range neighbors {
		if n.ID() == authorID {
			continue
		}
		ids = append(ids, n.ID())
		distances[n.ID()] = n.Distance()
	}
	if len(ids) == 0 {
		return hits, nil
	}

	rows, err := s.authors.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load result rows: %w", err)
	}
	rows = orderByRank(rows, ids, corpus.Author.ID)

	counts, err := s.authors.AbstractCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load abstract counts: %w", err)
	}

	showScores, mode := s.scoring(cfg)
	for _, row := range rows {
		hit := AuthorHit{Author: row, AbstractCount: counts[row.ID()]}
		if showScores {
			score := 0.0
			if mode == ScoreModeDistance {
				score = s.distanceScore(row.ID(), distances)
			} else if row.HasVector() {
				score = search.Cosine(query, row.Vector())
			}
			hit.Score = roundedScore(score)
		}
		hits = append(hits, hit)
	}

	s.logger.Debug("similar authors",
		"author", authorID, "top_k", cfg.topK, "results", len(hits))
	return hits, nil
}

// listFiltered lists the filter's rows by recency. No index involved, no
// scores.
func (s Search) listFiltered(ctx context.Context, page AbstractPage, ids []int64) (AbstractPage, error) {
	opts := []repository.Option{repository.WithIDIn(ids)}
	opts = append(opts, repository.WithRecencyOrder()...)
	opts = append(opts, repository.WithPagination(page.PageSize, (page.Page-1)*page.PageSize)...)

	rows, err := s.abstracts.List(ctx, opts...)
	if err != nil {
		return AbstractPage{}, fmt.Errorf("list filtered abstracts: %w", err)
	}

	rowIDs := make([]int64, len(rows))
	for i, row := range rows {
		rowIDs[i] = row.ID()
	}
	categories, err := s.abstracts.CategoriesByAbstractIDs(ctx, rowIDs)
	if err != nil {
		return AbstractPage{}, fmt.Errorf("load result categories: %w", err)
	}

	for _, row := range rows {
		page.Hits = append(page.Hits, AbstractHit{Abstract: row, Categories: categories[row.ID()]})
	}
	return page, nil
}

// embedQuery embeds the keyword once per request.
func (s Search) embedQuery(ctx context.Context, keyword string) ([]float32, error) {
	vectors, err := s.embedder.Embed(ctx, []string{keyword})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors for one text", len(vectors))
	}
	return vectors[0], nil
}

// rankedIDs searches the index with enough oversampling to survive both
// pagination depth and post-search filtering.
func (s Search) rankedIDs(ctx context.Context, idx search.Index, query []float32, cfg *queryConfig) ([]int64, map[int64]float32, error) {
	want := cfg.page * cfg.pageSize
	k := max(want*s.oversample, want)

	neighbors, err := idx.Search(ctx, query, k)
	if err != nil {
		return nil, nil, fmt.Errorf("index search: %w", err)
	}

	ids := make([]int64, 0, len(neighbors))
	distances := make(map[int64]float32, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.ID())
		distances[n.ID()] = n.Distance()
	}
	return ids, distances, nil
}

// scoring resolves the request's score options against the runtime
// defaults.
func (s Search) scoring(cfg *queryConfig) (bool, string) {
	show := s.settings.ShowScores()
	if cfg.showScores != nil {
		show = *cfg.showScores
	}
	mode := cfg.scoreMode
	if mode == "" {
		mode = s.settings.ScoreMode()
	}
	return show, mode
}

// abstractScore computes one result score. Distance mode transforms the
// index distance; cosine mode recomputes similarity against the stored
// vector and defaults to zero when the row has none.
func (s Search) abstractScore(mode string, query []float32, row corpus.Abstract, distances map[int64]float32) float64 {
	if mode == ScoreModeDistance {
		return s.distanceScore(row.ID(), distances)
	}
	if !row.HasVector() {
		return 0.0
	}
	return search.Cosine(query, row.Vector())
}

// authorScore computes one author score, or nil when the cosine mode has
// no stored vector to compare against.
func (s Search) authorScore(mode string, query []float32, row corpus.Author, distances map[int64]float32) *float64 {
	if mode == ScoreModeDistance {
		return roundedScore(s.distanceScore(row.ID(), distances))
	}
	if !row.HasVector() {
		return nil
	}
	return roundedScore(search.Cosine(query, row.Vector()))
}

// distanceScore transforms the id's index distance into a score. A
// negative distance indicates an upstream data problem and is logged.
func (s Search) distanceScore(id int64, distances map[int64]float32) float64 {
	d := float64(distances[id])
	if d < 0 {
		s.logger.Warn("negative index distance", "id", id, "distance", d)
	}
	return search.DistanceToScore(d)
}

// intersect keeps the ranked ids that appear in allowed, preserving rank
// order.
func intersect(ranked, allowed []int64) []int64 {
	set := make(map[int64]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	out := make([]int64, 0, len(ranked))
	for _, id := range ranked {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// paginate slices one page out of the ranked ids.
func paginate(ids []int64, page, pageSize int) []int64 {
	start := (page - 1) * pageSize
	if start >= len(ids) {
		return nil
	}
	return ids[start:min(start+pageSize, len(ids))]
}

// orderByRank sorts rows into the ranked order of ids. Rows missing from
// the ranking keep their relative order at the end.
func orderByRank[T any](rows []T, ids []int64, idOf func(T) int64) []T {
	pos := make(map[int64]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	rank := func(id int64) int {
		if p, ok := pos[id]; ok {
			return p
		}
		return len(pos)
	}
	slices.SortStableFunc(rows, func(a, b T) int {
		return cmp.Compare(rank(idOf(a)), rank(idOf(b)))
	})
	return rows
}

// roundedScore rounds a score to four decimals and returns its address.
func roundedScore(v float64) *float64 {
	r := math.Round(v*10000) / 10000
	return &r
}
