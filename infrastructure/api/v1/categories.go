package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/infrastructure/api/middleware"
	"github.com/helixml/scholar/infrastructure/api/v1/dto"
)

// CategoriesRouter handles category API endpoints.
type CategoriesRouter struct {
	client *scholar.Client
	logger *slog.Logger
}

// NewCategoriesRouter creates a new CategoriesRouter.
func NewCategoriesRouter(client *scholar.Client) *CategoriesRouter {
	return &CategoriesRouter{
		client: client,
		logger: client.Logger().Slog(),
	}
}

// Routes returns the chi router for category endpoints.
func (r *CategoriesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)

	return router
}

// List handles GET /api/v1/categories.
//
//	@Summary		List categories
//	@Description	Returns every category with its abstract count, ordered by title
//	@Tags			categories
//	@Produce		json
//	@Success		200	{array}	dto.CategoryResult
//	@Router			/categories [get]
func (r *CategoriesRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	counts, err := r.client.Categories.List(ctx)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	results := make([]dto.CategoryResult, 0, len(counts))
	for _, entry := range counts {
		results = append(results, dto.CategoryResult{
			ID:            entry.Category.ID(),
			Title:         entry.Category.Title(),
			AbstractCount: entry.AbstractCount,
		})
	}
	middleware.WriteJSON(w, http.StatusOK, results)
}
