package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to status codes: validation 400,
// not-found 404, broker rejection 502, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *appErrors.ValidationError
	var notFoundErr *appErrors.NotFoundError
	var publishErr *appErrors.QueuePublishError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &publishErr):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
