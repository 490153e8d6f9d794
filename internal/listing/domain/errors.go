package domain

import "errors"

// Outcomes the listing service reports to its callers. Wrap with %w and match with errors.Is.
var (
	// ErrValidation indicates a missing or malformed input field.
	ErrValidation = errors.New("validation failed")
	// ErrGeocodingFailed indicates the location could not be resolved to a point,
	// whatever the cause (network, timeout, empty result).
	ErrGeocodingFailed = errors.New("geocoding failed")
	// ErrNotFound indicates the referenced listing does not exist.
	ErrNotFound = errors.New("listing not found")
	// ErrForbidden indicates the requester does not own the listing.
	ErrForbidden = errors.New("action forbidden")
	// ErrConflict indicates the listing changed since the caller last read it.
	ErrConflict = errors.New("listing was modified concurrently")
	// ErrRepository indicates a generic persistence failure.
	ErrRepository = errors.New("repository error")
)
