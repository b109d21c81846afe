package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/faceauth/pwd-manager/api/models"
)

// titleFromWebsite derives a display title from the website URL when the
// client leaves it blank: "https://www.example.com/login" becomes "Example".
func titleFromWebsite(website string) string {
	u, err := url.Parse(website)
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	domain := strings.Split(host, ".")[0]
	if domain == "" {
		return "Unknown"
	}
	return strings.ToUpper(domain[:1]) + domain[1:]
}

// userKey returns the at-rest encryption key for the authenticated user.
func (a *API) userKey(r *http.Request) (int64, string) {
	claims := claimsFrom(r.Context())
	return claims.UserID, a.cipher.UserEncryptionKey(claims.UserID, claims.Email)
}

// decryptPassword reverses the at-rest encryption for responses. An empty
// result means the stored value could not be decrypted with the current key;
// it is returned as-is rather than failing the whole request.
func (a *API) decryptPassword(cred *models.Credential, key string) {
	if plaintext := a.cipher.Decrypt(cred.Password, key); plaintext != "" {
		cred.Password = plaintext
		return
	}
	a.log.Warn("stored credential password could not be decrypted", "credential_id", cred.ID)
}

func (a *API) listCredentials(w http.ResponseWriter, r *http.Request) {
	userID, key := a.userKey(r)

	creds, err := a.creds.ListByUser(r.Context(), userID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	for i := range creds {
		a.decryptPassword(&creds[i], key)
	}
	respondWithJSON(w, http.StatusOK, creds)
}

func (a *API) getCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, "invalid credential id", http.StatusBadRequest)
		return
	}
	userID, key := a.userKey(r)

	cred, err := a.creds.Get(r.Context(), id, userID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	a.decryptPassword(cred, key)
	respondWithJSON(w, http.StatusOK, cred)
}

func (a *API) createCredential(w http.ResponseWriter, r *http.Request) {
	var payload models.CredentialPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Website == "" || payload.Username == "" || payload.Password == "" {
		respondWithError(w, "website, username and password are required", http.StatusBadRequest)
		return
	}

	userID, key := a.userKey(r)
	title := payload.Title
	if title == "" {
		title = titleFromWebsite(payload.Website)
	}

	encrypted := a.cipher.Encrypt(payload.Password, key)
	if encrypted == "" {
		respondWithError(w, "something went wrong", http.StatusInternalServerError)
		return
	}

	created, err := a.creds.Create(r.Context(), &models.Credential{
		UserID:   userID,
		Title:    title,
		Website:  payload.Website,
		Username: payload.Username,
		Password: encrypted,
	})
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	created.Password = payload.Password
	respondWithJSON(w, http.StatusCreated, created)
}

func (a *API) updateCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, "invalid credential id", http.StatusBadRequest)
		return
	}

	var payload models.CredentialPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Title == "" && payload.Website == "" && payload.Username == "" && payload.Password == "" {
		respondWithError(w, "no update data provided", http.StatusBadRequest)
		return
	}

	userID, key := a.userKey(r)

	existing, err := a.creds.Get(r.Context(), id, userID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	if payload.Title != "" {
		existing.Title = payload.Title
	}
	if payload.Website != "" {
		existing.Website = payload.Website
	}
	if payload.Username != "" {
		existing.Username = payload.Username
	}
	if payload.Password != "" {
		encrypted := a.cipher.Encrypt(payload.Password, key)
		if encrypted == "" {
			respondWithError(w, "something went wrong", http.StatusInternalServerError)
			return
		}
		existing.Password = encrypted
	}

	updated, err := a.creds.Update(r.Context(), existing)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	a.decryptPassword(updated, key)
	respondWithJSON(w, http.StatusOK, updated)
}

func (a *API) deleteCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, "invalid credential id", http.StatusBadRequest)
		return
	}
	userID, _ := a.userKey(r)

	if err := a.creds.Delete(r.Context(), id, userID); err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "credential deleted"})
}
