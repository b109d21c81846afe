package handlers

import (
	"io"
	"net/http"

	"github.com/faceauth/pwd-manager/api/models"
	"github.com/faceauth/pwd-manager/apperr"
	"github.com/faceauth/pwd-manager/core/engine"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// uploadFromRequest turns the multipart file parts into a tagged upload: a
// part named "encryptedImage" is a client-encrypted envelope, "selfie" is a
// plaintext image. The part name is the only encrypted/plain signal.
func uploadFromRequest(r *http.Request) (engine.Upload, error) {
	if file, _, err := r.FormFile("encryptedImage"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return engine.Upload{}, apperr.ValidationFailed("could not read uploaded file")
		}
		return engine.EncryptedUpload(data), nil
	}

	if file, _, err := r.FormFile("selfie"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return engine.Upload{}, apperr.ValidationFailed("could not read uploaded file")
		}
		return engine.PlainUpload(data), nil
	}

	return engine.Upload{}, apperr.ValidationFailed("no selfie provided, capture a photo to continue")
}

func (a *API) registerUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var payload models.RegisterPayload
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

	user, err := a.faces.Register(r.Context(), payload.Email, upload)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}
