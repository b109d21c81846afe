package handlers

import (
	"net/http"

	"github.com/faceauth/pwd-manager/api/models"
)

func (a *API) loginUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var payload models.LoginPayload
	if err := a.decoder.Decode(&payload, r.MultipartForm.Value); err != nil {
		respondWithError(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Email == "" {
		respondWithError(w, "email is required", http.StatusBadRequest)
		return
	}

	upload, err := uploadFromRequest(r)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	result, err := a.faces.Authenticate(r.Context(), payload.Email, upload)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
