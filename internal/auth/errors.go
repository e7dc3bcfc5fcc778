package auth

import "github.com/billflow/billflow/internal/shared"

var (
	ErrEmailTaken           = shared.Conflict("User with same e-mail already exists.")
	ErrInvalidCredentials   = shared.BadRequest("Invalid credentials.")
	ErrUserNotFound         = shared.BadRequest("User not found")
	ErrInvalidRecoveryToken = shared.BadRequest("Invalid or expired token.")
	ErrInvalidAuthToken     = shared.Unauthorized("Invalid auth token.")
	ErrMissingAuthToken     = shared.Unauthorized("Missing auth token.")
)
