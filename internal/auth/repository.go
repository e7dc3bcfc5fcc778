package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/billflow/billflow/internal/platform/db"
	"github.com/billflow/billflow/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, user User) (uuid.UUID, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error
	CreateToken(ctx context.Context, userID uuid.UUID, typ TokenType) (*Token, error)
	FindTokenForUpdate(ctx context.Context, id uuid.UUID) (*Token, error)
	DeleteToken(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db   db.DBTX
	pool db.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

// WithTx runs fn with a repository bound to a single transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{db: tx, pool: r.pool})
	})
}

const userColumns = `id, name, email, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	return &u, nil
}

// FindUserByEmail fetches a user by normalized email.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindUserByID fetches a user by id.
func (r *PGRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateUser inserts a user and returns its id.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		user.Name, user.Email, user.PasswordHash,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return uuid.Nil, shared.ErrDuplicate
		}
		return uuid.Nil, fmt.Errorf("auth: insert user: %w", err)
	}
	return id, nil
}

// UpdatePassword replaces the password hash of a user.
func (r *PGRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, userID)
	if err != nil {
		return fmt.Errorf("auth: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateToken issues a new single-use token for userID.
func (r *PGRepository) CreateToken(ctx context.Context, userID uuid.UUID, typ TokenType) (*Token, error) {
	t := Token{UserID: userID, Type: typ}
	err := r.db.QueryRow(ctx,
		`INSERT INTO tokens (user_id, type) VALUES ($1, $2) RETURNING id, created_at`,
		userID, string(typ),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("auth: insert token: %w", err)
	}
	return &t, nil
}

// FindTokenForUpdate loads a token and locks its row for the current transaction.
func (r *PGRepository) FindTokenForUpdate(ctx context.Context, id uuid.UUID) (*Token, error) {
	var (
		t   Token
		typ string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, type, user_id, created_at FROM tokens WHERE id = $1 FOR UPDATE`, id,
	).Scan(&t.ID, &typ, &t.UserID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: select token: %w", err)
	}
	t.Type = TokenType(typ)
	return &t, nil
}

// DeleteToken removes a token.
func (r *PGRepository) DeleteToken(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: delete token: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
