package scholar

import (
	"errors"

	"github.com/helixml/scholar/application/service"
)

// Exported errors for library consumers.
var (
	// ErrNoDatabase indicates no database was configured.
	ErrNoDatabase = errors.New("scholar: no database configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = service.ErrClientClosed

	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = service.ErrNotFound

	// ErrValidation indicates a request that cannot be processed as given.
	ErrValidation = service.ErrValidation

	// ErrIndexUnavailable indicates vector search is not initialized.
	ErrIndexUnavailable = service.ErrIndexUnavailable

	// ErrEmptyQuery indicates a vector search with a blank keyword.
	ErrEmptyQuery = service.ErrEmptyQuery
)
