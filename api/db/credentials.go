package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faceauth/pwd-manager/api/models"
	"github.com/faceauth/pwd-manager/apperr"
)

// CredentialStore persists website credentials scoped to their owning user.
// Password values arrive already encrypted; this store treats them as opaque.
type CredentialStore struct {
	pool *sql.DB
}

func NewCredentialStore(pool *sql.DB) *CredentialStore {
	return &CredentialStore{pool: pool}
}

func (s *CredentialStore) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (user_id, title, website, username, password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	created := *cred
	err := s.pool.QueryRowContext(ctx, query,
		cred.UserID, cred.Title, cred.Website, cred.Username, cred.Password,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &created, nil
}

func (s *CredentialStore) ListByUser(ctx context.Context, userID int64) ([]models.Credential, error) {
	query := `
		SELECT id, user_id, title, website, username, password, created_at
		FROM credentials
		WHERE user_id = $1
		ORDER BY id`

	rows, err := s.pool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	creds := []models.Credential{}
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Website, &c.Username, &c.Password, &c.CreatedAt); err != nil {
			return nil, translate(err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return creds, nil
}

// Get returns the credential only if it belongs to userID; a credential owned
// by someone else is indistinguishable from a missing one.
func (s *CredentialStore) Get(ctx context.Context, id, userID int64) (*models.Credential, error) {
	query := `
		SELECT id, user_id, title, website, username, password, created_at
		FROM credentials
		WHERE id = $1 AND user_id = $2`

	var c models.Credential
	err := s.pool.QueryRowContext(ctx, query, id, userID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.Website, &c.Username, &c.Password, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(fmt.Sprintf("credential with id %d not found", id))
	}
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *CredentialStore) Update(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query := `
		UPDATE credentials
		SET title = $1, website = $2, username = $3, password = $4
		WHERE id = $5 AND user_id = $6
		RETURNING id, user_id, title, website, username, password, created_at`

	var updated models.Credential
	err := s.pool.QueryRowContext(ctx, query,
		cred.Title, cred.Website, cred.Username, cred.Password, cred.ID, cred.UserID,
	).Scan(&updated.ID, &updated.UserID, &updated.Title, &updated.Website,
		&updated.Username, &updated.Password, &updated.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(fmt.Sprintf("credential with id %d not found", cred.ID))
	}
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

func (s *CredentialStore) Delete(ctx context.Context, id, userID int64) error {
	res, err := s.pool.ExecContext(ctx,
		`DELETE FROM credentials WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return apperr.NotFound(fmt.Sprintf("credential with id %d not found", id))
	}
	return nil
}
