package v1

import (
	"net/http"
	"strconv"

	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/internal/config"
)

// PaginationParams holds pagination parameters parsed from query strings.
type PaginationParams struct {
	page     int
	pageSize int
}

// NewPaginationParams creates pagination params with defaults.
func NewPaginationParams() PaginationParams {
	return PaginationParams{
		page:     1,
		pageSize: config.DefaultPageSize,
	}
}

// ParsePagination parses `page` and `page_size` from an HTTP request.
// Missing or malformed values fall back to the defaults; page_size is
// capped at the configured maximum.
func ParsePagination(r *http.Request) PaginationParams {
	params := NewPaginationParams()

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page >= 1 {
			params.page = page
		}
	}

	if sizeStr := r.URL.Query().Get("page_size"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size >= 1 {
			params.pageSize = min(size, config.MaxPageSize)
		}
	}

	return params
}

// Page returns the 1-based page index.
func (p PaginationParams) Page() int { return p.page }

// PageSize returns the page size.
func (p PaginationParams) PageSize() int { return p.pageSize }

// Options returns the parsed pagination as query options.
func (p PaginationParams) Options() []service.QueryOption {
	return []service.QueryOption{
		service.WithPage(p.page),
		service.WithPageSize(p.pageSize),
	}
}
