package httpapi

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"opticore/internal/catalog"
	"opticore/internal/sweep"
	"opticore/pkg/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps a domain error onto an HTTP status and a structured
// payload carrying the error kind, so clients can branch without parsing
// messages.
func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	writeJSON(w, status, errorPayload{Error: err.Error(), Kind: kind})
}

func classify(err error) (int, string) {
	var (
		validation domain.ValidationError
		syntax     domain.SyntaxError
		unknownRef domain.UnknownReferenceError
		circular   domain.CircularReferenceError
		limit      domain.LimitError
		notFound   domain.NotFoundError
		outOfRange domain.OutOfRangeError
		matState   domain.MaterialStateError
		numerical  domain.NumericalError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation"
	case errors.As(err, &syntax):
		return http.StatusBadRequest, "syntax"
	case errors.As(err, &unknownRef):
		return http.StatusBadRequest, "unknown_reference"
	case errors.As(err, &circular):
		return http.StatusBadRequest, "circular_reference"
	case errors.As(err, &limit):
		return http.StatusBadRequest, "limit"
	case errors.As(err, &notFound), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &outOfRange):
		return http.StatusUnprocessableEntity, "out_of_range"
	case errors.As(err, &matState):
		return http.StatusUnprocessableEntity, "material_state"
	case errors.As(err, &numerical):
		return http.StatusUnprocessableEntity, "numerical"
	case errors.Is(err, sweep.ErrQueueFull):
		return http.StatusServiceUnavailable, "queue_full"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeBody(r *http.Request, into any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(into); err != nil {
		return domain.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}
