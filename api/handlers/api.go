// Package handlers exposes the HTTP surface: face registration and login,
// user CRUD, and JWT-protected credential CRUD.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/faceauth/pwd-manager/api/models"
	"github.com/faceauth/pwd-manager/auth"
	"github.com/faceauth/pwd-manager/core/crypto"
	"github.com/faceauth/pwd-manager/core/engine"
)

// FaceService is the enrollment/verification engine boundary.
type FaceService interface {
	Register(ctx context.Context, email string, upload engine.Upload) (*models.User, error)
	Authenticate(ctx context.Context, email string, upload engine.Upload) (*engine.AuthResult, error)
}

// UserDirectory covers the user CRUD that does not involve the face pipeline.
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id int64) error
}

// CredentialRepo persists website credentials scoped to their owner.
type CredentialRepo interface {
	Create(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Credential, error)
	Get(ctx context.Context, id, userID int64) (*models.Credential, error)
	Update(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	Delete(ctx context.Context, id, userID int64) error
}

type API struct {
	log     *slog.Logger
	faces   FaceService
	users   UserDirectory
	creds   CredentialRepo
	cipher  *crypto.Cipher
	issuer  *auth.Issuer
	decoder *schema.Decoder
}

func New(log *slog.Logger, faces FaceService, users UserDirectory, creds CredentialRepo, cipher *crypto.Cipher, issuer *auth.Issuer) *API {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &API{
		log:     log,
		faces:   faces,
		users:   users,
		creds:   creds,
		cipher:  cipher,
		issuer:  issuer,
		decoder: decoder,
	}
}

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users/register", a.registerUser)
	mux.HandleFunc("POST /users/login", a.loginUser)
	mux.HandleFunc("GET /users", a.listUsers)
	mux.HandleFunc("GET /users/{id}", a.getUser)
	mux.HandleFunc("DELETE /users/{id}", a.deleteUser)

	mux.Handle("GET /credentials", a.requireAuth(a.listCredentials))
	mux.Handle("POST /credentials", a.requireAuth(a.createCredential))
	mux.Handle("GET /credentials/{id}", a.requireAuth(a.getCredential))
	mux.Handle("PUT /credentials/{id}", a.requireAuth(a.updateCredential))
	mux.Handle("DELETE /credentials/{id}", a.requireAuth(a.deleteCredential))

	return a.withRequestLog(mux)
}
