package handlers

import (
	"net/http"
	"strconv"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, "invalid user id", http.StatusBadRequest)
		return
	}

	user, err := a.users.FindByID(r.Context(), id)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if err := a.users.Delete(r.Context(), id); err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
