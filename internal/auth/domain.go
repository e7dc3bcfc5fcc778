package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account able to authenticate.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can use password login.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}

// TokenType enumerates what a single-use token authorizes.
type TokenType string

const (
	TokenPasswordRecover TokenType = "PASSWORD_RECOVER"
)

// Token is a database-backed single-use secret bound to one user.
type Token struct {
	ID        uuid.UUID
	Type      TokenType
	UserID    uuid.UUID
	CreatedAt time.Time
}

// ExpiredAt reports whether the token is older than ttl at now.
func (t Token) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return !now.Before(t.CreatedAt.Add(ttl))
}

// RegisterInput carries the data needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}
