package api

import "errors"

// Sentinel errors for the api package.
var (
	// ErrResourceUnavailable is returned when the remote item is missing,
	// region-locked, or requires elevated privileges.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrUnsupported is returned when the content shape is not one this
	// client can resolve (festival pages, interactive videos).
	ErrUnsupported = errors.New("unsupported content")

	// ErrAPI is returned for remote errors outside the taxonomy above.
	ErrAPI = errors.New("api error")

	// ErrNoHandler is returned when a URL matches no known resource kind.
	ErrNoHandler = errors.New("no handler matches url")
)
