package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billflow/billflow/internal/shared"
)

var userCols = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PGRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewRepository(mock), mock
}

func TestPGRepositoryFindUserByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	hash := "$2a$10$hash"
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "Alice", "alice@example.com", &hash, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ghost@example.com").
		WillReturnRows(pgxmock.NewRows(userCols))

	user, err := repo.FindUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.True(t, user.HasPassword())

	_, err = repo.FindUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPGRepositoryCreateUserDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	hash := "$2a$10$hash"

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id`)).
		WithArgs("Alice", "alice@example.com", &hash).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), User{Name: "Alice", Email: "alice@example.com", PasswordHash: &hash})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestPGRepositoryUpdatePasswordMissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`)).
		WithArgs("new-hash", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), id, "new-hash"), shared.ErrNotFound)
}

func TestPGRepositoryResetRunsInLockedTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	tokenID, userID := uuid.New(), uuid.New()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, type, user_id, created_at FROM tokens WHERE id = $1 FOR UPDATE`)).
		WithArgs(tokenID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "user_id", "created_at"}).
			AddRow(tokenID, "PASSWORD_RECOVER", userID, created))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash`)).
		WithArgs("new-hash", userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tokens WHERE id = $1`)).
		WithArgs(tokenID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx Repository) error {
		token, err := tx.FindTokenForUpdate(ctx, tokenID)
		if err != nil {
			return err
		}
		assert.Equal(t, TokenPasswordRecover, token.Type)
		assert.Equal(t, created, token.CreatedAt)
		if err := tx.UpdatePassword(ctx, token.UserID, "new-hash"); err != nil {
			return err
		}
		return tx.DeleteToken(ctx, token.ID)
	})
	require.NoError(t, err)
}

func TestPGRepositoryWithTxRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	tokenID := uuid.New()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(tokenID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "user_id", "created_at"}))
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx Repository) error {
		_, err := tx.FindTokenForUpdate(ctx, tokenID)
		return err
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPGRepositoryCreateToken(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID, tokenID := uuid.New(), uuid.New()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO tokens (user_id, type) VALUES ($1, $2) RETURNING id, created_at`)).
		WithArgs(userID, "PASSWORD_RECOVER").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(tokenID, created))
	boom := errors.New("foreign key violation")
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO tokens`)).
		WithArgs(userID, "PASSWORD_RECOVER").
		WillReturnError(boom)

	token, err := repo.CreateToken(context.Background(), userID, TokenPasswordRecover)
	require.NoError(t, err)
	assert.Equal(t, tokenID, token.ID)
	assert.Equal(t, userID, token.UserID)

	_, err = repo.CreateToken(context.Background(), userID, TokenPasswordRecover)
	assert.ErrorIs(t, err, boom)
}
