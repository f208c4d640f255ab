package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/infrastructure/api/middleware"
	"github.com/helixml/scholar/infrastructure/api/v1/dto"
)

// AuthorsRouter handles author API endpoints.
type AuthorsRouter struct {
	client *scholar.Client
	logger *slog.Logger
}

// NewAuthorsRouter creates a new AuthorsRouter.
func NewAuthorsRouter(client *scholar.Client) *AuthorsRouter {
	return &AuthorsRouter{
		client: client,
		logger: client.Logger().Slog(),
	}
}

// Routes returns the chi router for author endpoints.
func (r *AuthorsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Get("/{id}", r.Get)
	router.Get("/{id}/similar", r.Similar)
	router.Patch("/{id}", r.Update)
	router.Delete("/{id}", r.Delete)

	return router
}

// List handles GET /api/v1/authors.
//
//	@Summary		List or search authors
//	@Description	Without a keyword returns authors by name; with a keyword ranks them against the query in vector space
//	@Tags			authors
//	@Produce		json
//	@Param			keyword		query		string	false	"Search keyword"
//	@Param			page		query		int		false	"1-based page index"
//	@Param			page_size	query		int		false	"Results per page, max 100"
//	@Param			show_scores	query		bool	false	"Attach similarity scores"
//	@Param			score_mode	query		string	false	"cosine or distance"
//	@Success		200			{object}	dto.AuthorListResponse
//	@Failure		503			{object}	map[string]string
//	@Router			/authors [get]
func (r *AuthorsRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	keyword := strings.TrimSpace(req.URL.Query().Get("keyword"))

	opts := ParsePagination(req).Options()
	opts = append(opts, scoreOptions(req)...)

	var page service.AuthorPage
	var err error
	if keyword == "" {
		page, err = r.client.Authors.List(ctx, opts...)
	} else {
		page, err = r.client.Search.SearchAuthors(ctx, keyword, opts...)
	}
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildAuthorListResponse(page))
}

// Get handles GET /api/v1/authors/{id}.
//
//	@Summary		Get one author
//	@Description	Returns the author with their abstracts, newest first
//	@Tags			authors
//	@Produce		json
//	@Param			id	path		int	true	"Author id"
//	@Success		200	{object}	dto.AuthorDetailResponse
//	@Failure		404	{object}	map[string]string
//	@Router			/authors/{id} [get]
func (r *AuthorsRouter) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	detail, err := r.client.Authors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = middleware.NewAPIError(http.StatusNotFound, "author_not_found", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildAuthorDetailResponse(detail))
}

// Similar handles GET /api/v1/authors/{id}/similar.
//
//	@Summary		Find similar authors
//	@Description	Returns the authors nearest to the given one in vector space, excluding the author themselves. An unknown or vectorless author yields an empty list.
//	@Tags			authors
//	@Produce		json
//	@Param			id			path		int		true	"Author id"
//	@Param			top_k		query		int		false	"Neighbor count, max 50"
//	@Param			show_scores	query		bool	false	"Attach similarity scores"
//	@Param			score_mode	query		string	false	"cosine or distance"
//	@Success		200			{object}	dto.SimilarAuthorsResponse
//	@Router			/authors/{id}/similar [get]
func (r *AuthorsRouter) Similar(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	opts := scoreOptions(req)
	if v := req.URL.Query().Get("top_k"); v != "" {
		if topK, err := strconv.Atoi(v); err == nil && topK >= 1 {
			opts = append(opts, service.WithTopK(topK))
		}
	}

	hits, err := r.client.Search.SimilarAuthors(ctx, id, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	results := make([]dto.SimilarAuthor, 0, len(hits))
	for _, hit := range hits {
		results = append(results, dto.SimilarAuthor{
			ID:    hit.Author.ID(),
			Name:  hit.Author.Name(),
			Score: hit.Score,
		})
	}
	middleware.WriteJSON(w, http.StatusOK, dto.SimilarAuthorsResponse{ID: id, Results: results})
}

// Update handles PATCH /api/v1/authors/{id}.
//
//	@Summary		Update an author
//	@Description	Renames the author and optionally recomputes their aggregate vector from the currently embedded abstracts
//	@Tags			authors
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Author id"
//	@Param			body	body		dto.AuthorPatchRequest	true	"Fields to change"
//	@Success		200		{object}	dto.AuthorPatchResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/authors/{id} [patch]
func (r *AuthorsRouter) Update(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	var body dto.AuthorPatchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid_json", err), r.logger)
		return
	}

	result, err := r.client.Authors.Update(ctx, id, service.AuthorPatch{
		Name:      body.Name,
		Recompute: body.Recompute,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = middleware.NewAPIError(http.StatusNotFound, "author_not_found", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.AuthorPatchResponse{
		Status:      "ok",
		ID:          result.ID,
		Recomputed:  result.Recomputed,
		IndexSynced: syncFlag(result.Sync),
	})
}

// Delete handles DELETE /api/v1/authors/{id}.
//
//	@Summary		Delete an author
//	@Description	Removes the author with their abstract links and clears their index entry; the abstracts themselves are kept
//	@Tags			authors
//	@Produce		json
//	@Param			id	path		int	true	"Author id"
//	@Success		200	{object}	dto.AuthorDeleteResponse
//	@Failure		404	{object}	map[string]string
//	@Router			/authors/{id} [delete]
func (r *AuthorsRouter) Delete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	id, err := parseID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	result, err := r.client.Authors.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = middleware.NewAPIError(http.StatusNotFound, "author_not_found", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.AuthorDeleteResponse{
		Status:      "ok",
		Deleted:     result.Deleted,
		IndexSynced: syncFlag(result.Sync),
	})
}

func buildAuthorListResponse(page service.AuthorPage) dto.AuthorListResponse {
	results := make([]dto.AuthorResult, 0, len(page.Hits))
	for _, hit := range page.Hits {
		results = append(results, dto.AuthorResult{
			ID:            hit.Author.ID(),
			Name:          hit.Author.Name(),
			AbstractCount: hit.AbstractCount,
			Score:         hit.Score,
		})
	}
	return dto.AuthorListResponse{
		Query:    page.Keyword,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  results,
	}
}

func buildAuthorDetailResponse(detail service.AuthorDetail) dto.AuthorDetailResponse {
	abstracts := make([]dto.AuthorAbstract, 0, len(detail.Abstracts))
	for _, entry := range detail.Abstracts {
		categories := make([]dto.CategorySummary, 0, len(entry.Categories))
		for _, c := range entry.Categories {
			categories = append(categories, dto.CategorySummary{ID: c.ID(), Title: c.Title()})
		}
		abstracts = append(abstracts, dto.AuthorAbstract{
			ID:          entry.Abstract.ID(),
			Title:       entry.Abstract.Title(),
			Event:       entry.Abstract.Event(),
			PublishedAt: formatDate(entry.Abstract.PublishedAt()),
			Categories:  categories,
		})
	}
	return dto.AuthorDetailResponse{
		ID:            detail.Author.ID(),
		Name:          detail.Author.Name(),
		AbstractCount: len(detail.Abstracts),
		Abstracts:     abstracts,
	}
}
