package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
)

// Outcome names reported in error bodies.
const (
	outcomeValidation = "validation_failed"
	outcomeGeocoding  = "geocoding_failed"
	outcomeNotFound   = "not_found"
	outcomeForbidden  = "forbidden"
	outcomeConflict   = "conflict"
	outcomeInternal   = "internal"
)

// classify maps a usecase error to its HTTP status and outcome name.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, outcomeValidation
	case errors.Is(err, domain.ErrGeocodingFailed):
		return http.StatusUnprocessableEntity, outcomeGeocoding
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, outcomeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, outcomeForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, outcomeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, outcomeInternal
	default:
		return http.StatusInternalServerError, outcomeInternal
	}
}

// writeJSON encodes v before committing the status, so an unencodable value
// becomes a 500 instead of a success with an empty body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: outcomeInternal, Message: http.StatusText(status)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
