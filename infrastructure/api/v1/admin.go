package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/infrastructure/api/middleware"
	"github.com/helixml/scholar/infrastructure/api/v1/dto"
)

// AdminRouter handles the operational API endpoints.
type AdminRouter struct {
	client *scholar.Client
	logger *slog.Logger
}

// NewAdminRouter creates a new AdminRouter.
func NewAdminRouter(client *scholar.Client) *AdminRouter {
	return &AdminRouter{
		client: client,
		logger: client.Logger().Slog(),
	}
}

// Routes returns the chi router for admin endpoints.
func (r *AdminRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/status", r.Status)
	router.Post("/config", r.Configure)
	router.Post("/reindex", r.Reindex)
	router.Post("/reset", r.Reset)
	router.Put("/loglevel", r.SetLogLevel)

	return router
}

// Status handles GET /api/v1/admin/status.
//
//	@Summary		Service status
//	@Description	Reports the embedding backend, row counts, index states, scoring settings, and log level
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	dto.StatusResponse
//	@Router			/admin/status [get]
func (r *AdminRouter) Status(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	report, err := r.client.Admin.Status(ctx)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.StatusResponse{
		Model: dto.ModelStatus{
			Name:      report.ModelName,
			Runtime:   report.ModelRuntime,
			Available: report.ModelAvailable,
		},
		Counts: dto.ResourceCounts{
			Abstracts: report.AbstractCount,
			Authors:   report.AuthorCount,
		},
		Indices: dto.IndexStatuses{
			Abstracts: indexStatus(report.AbstractIndex),
			Authors:   indexStatus(report.AuthorIndex),
		},
		Config: dto.SearchConfig{
			ShowScores: report.ShowScores,
			ScoreMode:  report.ScoreMode,
		},
		Logger: dto.LoggerStatus{Level: report.LogLevel},
	})
}

// Configure handles POST /api/v1/admin/config.
//
//	@Summary		Change scoring settings
//	@Description	Updates the runtime score attachment defaults; absent fields stay unchanged
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			body	body		dto.ConfigRequest	true	"Settings to change"
//	@Success		200		{object}	dto.ConfigResponse
//	@Failure		400		{object}	map[string]string
//	@Router			/admin/config [post]
func (r *AdminRouter) Configure(w http.ResponseWriter, req *http.Request) {
	var body dto.ConfigRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid_json", err), r.logger)
		return
	}

	showScores, scoreMode, err := r.client.Admin.Configure(service.ConfigPatch{
		ShowScores: body.ShowScores,
		ScoreMode:  body.ScoreMode,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			err = middleware.NewAPIError(http.StatusBadRequest, "invalid_score_mode", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.ConfigResponse{
		Status: "ok",
		Config: dto.SearchConfig{ShowScores: showScores, ScoreMode: scoreMode},
	})
}

// Reindex handles POST /api/v1/admin/reindex.
//
//	@Summary		Rebuild the vector indices
//	@Description	Rebuilds both indices from the stored vectors and saves them
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	dto.ReindexResponse
//	@Router			/admin/reindex [post]
func (r *AdminRouter) Reindex(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	report, err := r.client.Admin.Reindex(ctx)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.ReindexResponse{
		Status: "ok",
		Indices: dto.ResourceCounts{
			Abstracts: report.Abstracts,
			Authors:   report.Authors,
		},
	})
}

// Reset handles POST /api/v1/admin/reset.
//
//	@Summary		Wipe the corpus
//	@Description	Deletes every abstract, author, category, and index entry. Requires the confirmation phrase RESET.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			body	body		dto.ResetRequest	true	"Confirmation"
//	@Success		200		{object}	dto.ResetResponse
//	@Failure		400		{object}	map[string]string
//	@Router			/admin/reset [post]
func (r *AdminRouter) Reset(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.ResetRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid_json", err), r.logger)
		return
	}

	if err := r.client.Admin.Reset(ctx, body.Confirm); err != nil {
		if errors.Is(err, service.ErrValidation) {
			err = middleware.NewAPIError(http.StatusBadRequest, "confirmation_required", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.ResetResponse{
		Status:  "ok",
		Message: "database_cleared",
		Counts:  dto.ResourceCounts{},
		Indices: dto.ResourceCounts{},
	})
}

// SetLogLevel handles PUT /api/v1/admin/loglevel.
//
//	@Summary		Change the log level
//	@Description	Switches the minimum level of the running logger
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			body	body		dto.LogLevelRequest	true	"Level name"
//	@Success		200		{object}	dto.LogLevelResponse
//	@Failure		400		{object}	map[string]string
//	@Router			/admin/loglevel [put]
func (r *AdminRouter) SetLogLevel(w http.ResponseWriter, req *http.Request) {
	var body dto.LogLevelRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid_json", err), r.logger)
		return
	}

	applied, err := r.client.Admin.SetLogLevel(body.Level)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			err = middleware.NewAPIError(http.StatusBadRequest, "invalid_level", err)
		}
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.LogLevelResponse{
		Status:   "ok",
		NewLevel: applied,
	})
}

func indexStatus(status *service.IndexStatus) *dto.IndexStatus {
	if status == nil {
		return nil
	}
	return &dto.IndexStatus{
		Entries:   status.Entries,
		Path:      status.Path,
		Metric:    status.Metric,
		Dimension: status.Dimension,
	}
}
