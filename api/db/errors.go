package db

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/faceauth/pwd-manager/apperr"
)

// translate maps driver errors onto the service error taxonomy. Uniqueness on
// email is enforced by the database, not the service, so a duplicate surfaces
// here as a unique_violation.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("record not found")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			if strings.Contains(pqErr.Constraint, "email") {
				return apperr.ValidationFailed("a user with this email already exists")
			}
			if strings.Contains(pqErr.Constraint, "website") {
				return apperr.ValidationFailed("you already have credentials saved for this website")
			}
			return apperr.ValidationFailed("this record already exists")
		case "foreign_key_violation":
			if strings.Contains(pqErr.Constraint, "user") {
				return apperr.NotFound("the specified user does not exist")
			}
			return apperr.NotFound("a related record does not exist")
		}
	}

	return apperr.Internal("database error", err)
}
