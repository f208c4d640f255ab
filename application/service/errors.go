package service

import (
	"errors"

	"github.com/helixml/scholar/internal/database"
)

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = errors.New("scholar: client is closed")

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("scholar: not found")

// ErrValidation indicates a request that cannot be processed as given.
var ErrValidation = errors.New("scholar: invalid request")

// ErrIndexUnavailable indicates vector search is not initialized, for
// example because no embedding backend is configured.
var ErrIndexUnavailable = errors.New("scholar: search index unavailable")

// ErrEmptyQuery indicates a vector search was requested with a blank
// keyword.
var ErrEmptyQuery = errors.New("scholar: empty search keyword")

// missing reports whether err is the store's missing-row condition.
func missing(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
