package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/faceauth/pwd-manager/apperr"
)

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, message string, status int) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Internal faults are logged in full and answered with a generic message.
func (a *API) respondServiceError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidationFailed:
		respondWithError(w, serviceMessage(err), http.StatusBadRequest)
	case apperr.KindNotFound:
		respondWithError(w, serviceMessage(err), http.StatusNotFound)
	default:
		a.log.Error("internal error", "error", err)
		respondWithError(w, "something went wrong", http.StatusInternalServerError)
	}
}

func serviceMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
