package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/scholar"
	apimiddleware "github.com/helixml/scholar/infrastructure/api/middleware"
	v1 "github.com/helixml/scholar/infrastructure/api/v1"
	mcpinternal "github.com/helixml/scholar/internal/mcp"
)

// APIServer provides an HTTP API backed by a scholar Client.
type APIServer struct {
	client       *scholar.Client
	corsOrigins  []string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given scholar
// Client. corsOrigins lists the browser origins allowed to call the
// API; an empty list disables CORS.
func NewAPIServer(client *scholar.Client, corsOrigins []string) *APIServer {
	return &APIServer{
		client:      client,
		corsOrigins: corsOrigins,
		logger:      client.Logger().Slog(),
	}
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all v1 API routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

// mountRoutes wires up all v1 API routes on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	abstractsRouter := v1.NewAbstractsRouter(c)
	authorsRouter := v1.NewAuthorsRouter(c)
	categoriesRouter := v1.NewCategoriesRouter(c)
	adminRouter := v1.NewAdminRouter(c)

	router.Get("/healthz", a.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Mount("/abstracts", abstractsRouter.Routes())
		r.Mount("/authors", authorsRouter.Routes())
		r.Mount("/categories", categoriesRouter.Routes())
		r.Mount("/admin", adminRouter.Routes())
	})

	// MCP endpoint, mounted outside the timeout group. MCP uses
	// streaming responses and manages its own session state via response
	// headers, which is incompatible with chi's Timeout middleware that
	// wraps the ResponseWriter.
	mcpSrv := mcpinternal.NewServer(c.Search, "1.0.0", a.logger)
	httpHandler := server.NewStreamableHTTPServer(mcpSrv.MCPServer())
	router.Mount("/mcp", httpHandler)
}

// health reports liveness and the active embedding model without
// touching the database or the indices.
func (a *APIServer) health(w http.ResponseWriter, req *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  a.client.ModelName(),
	})
}

// DocsRouter returns a router for Swagger UI and OpenAPI spec.
func (a *APIServer) DocsRouter(specURL string) *DocsRouter {
	return NewDocsRouter(specURL)
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.corsOrigins, a.logger)
	a.server = &server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}
