package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated principal attached to a request or a
// realtime connection. It is resolved once from the session token.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// Valid reports whether the identity names a user.
func (i Identity) Valid() bool {
	return i.UserID > 0
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"-"`
	User  User   `json:"user"`
}
