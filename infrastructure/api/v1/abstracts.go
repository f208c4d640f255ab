// Package v1 implements the v1 REST API routers.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/infrastructure/api/middleware"
	"github.com/helixml/scholar/infrastructure/api/v1/dto"
)

// AbstractsRouter handles abstract API endpoints.
type AbstractsRouter struct {
	client *scholar.Client
	logger *slog.Logger
}

// NewAbstractsRouter creates a new AbstractsRouter.
func NewAbstractsRouter(client *scholar.Client) *AbstractsRouter {
	return &AbstractsRouter{
		client: client,
		logger: client.Logger().Slog(),
	}
}

// Routes returns the chi router for abstract endpoints.
func (r *AbstractsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Post("/import", r.Import)
	router.Get("/{id}", r.Get)
	router.Patch("/{id}", r.Update)
	router.Delete("/{id}", r.Delete)

	return router
}

// List handles GET /api/v1/abstracts.
//
//	@Summary		List or search abstracts
//	@Description	Without a keyword returns abstracts by recency; with a keyword runs a vector search. A repeated category parameter filters either mode.
//	@Tags			abstracts
//	@Produce		json
//	@Param			keyword		query		string	false	"Search keyword"
//	@Param			category	query		int		false	"Category id filter, repeatable"
//	@Param			page		query		int		false	"1-based page index"
//	@Param			page_size	query		int		false	"Results per page, max 100"
//	@Param			show_scores	query		bool	false	"Attach similarity scores"
//	@Param			score_mode	query		string	false	"cosine or distance"
//	@Success		200			{object}	dto.AbstractListResponse
//	@Failure		400			{object}	map[string]string
//	@Failure		503			{object}	map[string]string
//	@Router			/abstracts [get]
func (r *AbstractsRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	keyword := strings.TrimSpace(req.URL.Query().Get("keyword"))
	categories, err := parseCategoryFilter(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	opts := ParsePagination(req).Options()
	if len(categories) > 0 {
		opts = append(opts, service.WithCategories(categories...))
	}
	opts = append(opts, scoreOptions(req)...)

	var page service.AbstractPage
	if keyword == "" && len(categories) == 0 {
		page, err = r.client.Abstracts.List(ctx, opts...)
	} else {
		page, err = r.client.Search.SearchAbstracts(ctx, keyword, opts...)
	}
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildAbstractListResponse(page))
}

// Get handles GET /api/v1/abstracts/{id}.
//
//	@Summary		Get one abstract
//	@Description	Returns the abstract with its linked authors and categories
//	@Tags			abstracts
//	@Produce		json
//	@Param			id	path		int	true	"Abstract id"
//	@Success		200	{object}	dto.AbstractDetailResponse
//	@Failure		404	{object}	map[string]string
//	@Router			/abstracts/{id} [get]
func (r *AbstractsRouter) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	detail, err := r.client.Abstracts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = middleware.NewAPIError(http.StatusNotFound, "abstract_not_found", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildAbstractDetailResponse(detail))
}

// Import handles POST /api/v1/abstracts/import.
//
//	@Summary		Import abstracts
//	@Description	Upserts a batch of abstracts with their author and category links, embeds the new rows, and refreshes the affected author vectors
//	@Tags			abstracts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]dto.ImportRow	true	"Import rows"
//	@Success		200		{object}	dto.ImportResponse
//	@Failure		400		{object}	map[string]string
//	@Router			/abstracts/import [post]
func (r *AbstractsRouter) Import(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body []dto.ImportRow
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid_json", err), r.logger)
		return
	}

	rows := make([]service.ImportRow, 0, len(body))
	for _, row := range body {
		published, err := parseDate(row.PublishedAt)
		if err != nil {
			middleware.WriteError(w, req,
				middleware.NewAPIError(http.StatusBadRequest, "invalid_datetime:published_at", err), r.logger)
			return
		}
		rows = append(rows, service.ImportRow{
			ID:          row.ID,
			Title:       row.Title,
			Body:        row.Body,
			Event:       row.Event,
			PublishedAt: published,
			Authors:     importAuthors(row.Authors),
			Categories:  importCategories(row.Categories),
		})
	}

	report, err := r.client.Importer.Import(ctx, rows)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.ImportResponse{
		Status:         "imported",
		Count:          report.Imported,
		AuthorsUpdated: report.AuthorsUpdated,
		OpID:           report.OpID,
		DurationMS:     math.Round(report.Duration.Seconds()*1000*10) / 10,
		IndexSynced:    syncFlag(report.Sync),
	})
}

// Update handles PATCH /api/v1/abstracts/{id}.
//
//	@Summary		Update an abstract
//	@Description	Applies a partial update; a title or body change re-embeds the abstract and refreshes the affected author vectors
//	@Tags			abstracts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Abstract id"
//	@Param			body	body		dto.AbstractPatchRequest	true	"Fields to change"
//	@Success		200		{object}	dto.AbstractPatchResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/abstracts/{id} [patch]
func (r *AbstractsRouter) Update(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	var body dto.AbstractPatchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid_json", err), r.logger)
		return
	}

	patch := service.AbstractPatch{Title: body.Title, Body: body.Body, Event: body.Event}
	if body.PublishedAt != nil {
		published, err := parseDate(*body.PublishedAt)
		if err != nil {
			middleware.WriteError(w, req,
				middleware.NewAPIError(http.StatusBadRequest, "invalid_datetime:published_at", err), r.logger)
			return
		}
		patch.PublishedAt = &published
	}
	if body.Categories != nil {
		patch.SetCategories = true
		patch.Categories = importCategories(*body.Categories)
	}

	result, err := r.client.Abstracts.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = middleware.NewAPIError(http.StatusNotFound, "abstract_not_found", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.AbstractPatchResponse{
		Status:      "ok",
		ID:          result.ID,
		Reembedded:  result.Reembedded,
		IndexSynced: syncFlag(result.Sync),
	})
}

// Delete handles DELETE /api/v1/abstracts/{id}.
//
//	@Summary		Delete an abstract
//	@Description	Removes the abstract with its links and recomputes the vectors of its authors
//	@Tags			abstracts
//	@Produce		json
//	@Param			id	path		int	true	"Abstract id"
//	@Success		200	{object}	dto.AbstractDeleteResponse
//	@Failure		404	{object}	map[string]string
//	@Router			/abstracts/{id} [delete]
func (r *AbstractsRouter) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	result, err := r.client.Abstracts.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = middleware.NewAPIError(http.StatusNotFound, "abstract_not_found", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.AbstractDeleteResponse{
		Status:                  "ok",
		Deleted:                 result.Deleted,
		AuthorsReembedded:       result.Sync.AuthorsUpdated,
		AuthorsRemovedFromIndex: result.Sync.AuthorsCleared,
		IndexSynced:             syncFlag(result.Sync),
	})
}

func buildAbstractListResponse(page service.AbstractPage) dto.AbstractListResponse {
	results := make([]dto.AbstractResult, 0, len(page.Hits))
	for _, hit := range page.Hits {
		out := dto.AbstractResult{
			ID:    hit.Abstract.ID(),
			Title: hit.Abstract.Title(),
			Event: hit.Abstract.Event(),
			Score: hit.Score,
		}
		if len(hit.Categories) > 0 {
			title := hit.Categories[0].Title()
			out.CategoryTitle = &title
		}
		results = append(results, out)
	}
	return dto.AbstractListResponse{
		Query:    page.Keyword,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  results,
	}
}

func buildAbstractDetailResponse(detail service.AbstractDetail) dto.AbstractDetailResponse {
	authors := make([]dto.AuthorSummary, 0, len(detail.Authors))
	for _, a := range detail.Authors {
		authors = append(authors, dto.AuthorSummary{ID: a.ID(), Name: a.Name()})
	}
	categories := make([]dto.CategorySummary, 0, len(detail.Categories))
	for _, c := range detail.Categories {
		categories = append(categories, dto.CategorySummary{ID: c.ID(), Title: c.Title()})
	}
	return dto.AbstractDetailResponse{
		ID:          detail.Abstract.ID(),
		Title:       detail.Abstract.Title(),
		Body:        detail.Abstract.Body(),
		Event:       detail.Abstract.Event(),
		PublishedAt: formatDate(detail.Abstract.PublishedAt()),
		Authors:     authors,
		Categories:  categories,
	}
}

func importAuthors(refs []dto.ImportAuthor) []service.AuthorRef {
	out := make([]service.AuthorRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, service.AuthorRef{ID: ref.ID, Name: ref.Name})
	}
	return out
}

func importCategories(refs []dto.ImportCategory) []service.CategoryRef {
	out := make([]service.CategoryRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, service.CategoryRef{ID: ref.ID, Title: ref.Title})
	}
	return out
}

// parseID reads the {id} path parameter.
func parseID(req *http.Request) (int64, error) {
	raw := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", raw, service.ErrValidation)
	}
	return id, nil
}

// parseCategoryFilter reads the repeated category query parameter.
func parseCategoryFilter(req *http.Request) ([]int64, error) {
	raw := req.URL.Query()["category"]
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("category id %q: %w", v, service.ErrValidation)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseDate accepts RFC 3339 or a plain YYYY-MM-DD date. Empty means
// unknown and yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// formatDate renders a publication date, nil when unknown.
func formatDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// scoreOptions reads the per-request scoring overrides. Malformed or
// unknown values keep the runtime defaults.
func scoreOptions(req *http.Request) []service.QueryOption {
	var opts []service.QueryOption
	q := req.URL.Query()
	if v := q.Get("show_scores"); v != "" {
		if show, err := strconv.ParseBool(v); err == nil {
			opts = append(opts, service.WithScores(show))
		}
	}
	if mode := q.Get("score_mode"); mode != "" {
		opts = append(opts, service.WithScoreMode(mode))
	}
	return opts
}

// syncFlag returns a pointer to false when the relational commit landed
// but the index update did not, nil otherwise.
func syncFlag(report service.SyncReport) *bool {
	if report.Committed && !report.IndexSynced {
		f := false
		return &f
	}
	return nil
}
