package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/faceauth/pwd-manager/api/models"
	"github.com/faceauth/pwd-manager/apperr"
	"github.com/faceauth/pwd-manager/core/face"
)

// UserStore persists identities and their face descriptors.
type UserStore struct {
	pool *sql.DB
}

func NewUserStore(pool *sql.DB) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, face_descriptor)
		VALUES ($1, $2)
		RETURNING id, created_at`

	created := *user
	err := s.pool.QueryRowContext(ctx, query,
		user.Email, descriptorToArray(user.FaceDescriptor),
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &created, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, face_descriptor, created_at
		FROM users
		WHERE email = $1`

	user, err := s.scanUser(s.pool.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(fmt.Sprintf("user %s not found", email))
	}
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, face_descriptor, created_at
		FROM users
		WHERE id = $1`

	user, err := s.scanUser(s.pool.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(fmt.Sprintf("user with id %d not found", id))
	}
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, email, face_descriptor, created_at
		FROM users
		ORDER BY id`

	rows, err := s.pool.QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, translate(err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.pool.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return apperr.NotFound(fmt.Sprintf("user with id %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *UserStore) scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var descriptor pq.Float64Array
	if err := row.Scan(&user.ID, &user.Email, &descriptor, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.FaceDescriptor = arrayToDescriptor(descriptor)
	return &user, nil
}

// The embedding is stored as float8[]; descriptors are float32 in memory, so
// conversion happens at the storage boundary.

func descriptorToArray(d face.Descriptor) pq.Float64Array {
	if len(d) == 0 {
		return nil
	}
	arr := make(pq.Float64Array, len(d))
	for i, v := range d {
		arr[i] = float64(v)
	}
	return arr
}

func arrayToDescriptor(arr pq.Float64Array) face.Descriptor {
	if len(arr) == 0 {
		return nil
	}
	d := make(face.Descriptor, len(arr))
	for i, v := range arr {
		d[i] = float32(v)
	}
	return d
}
