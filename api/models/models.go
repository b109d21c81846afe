package models

import (
	"time"

	"github.com/faceauth/pwd-manager/core/face"
)

// User is an identity authenticated by face. The stored descriptor is set at
// most once, during registration, and is never serialized into responses.
type User struct {
	ID             int64           `json:"id"`
	Email          string          `json:"email"`
	FaceDescriptor face.Descriptor `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HasFace reports whether the user completed face enrollment. An identity
// without a stored descriptor cannot authenticate.
func (u *User) HasFace() bool {
	return len(u.FaceDescriptor) > 0
}

// Credential is a stored website login owned by one user. The password is
// encrypted at rest with the owner's user key.
type Credential struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Website   string    `json:"website"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}
