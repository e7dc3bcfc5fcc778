package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/billflow/billflow/internal/platform/db"
	"github.com/billflow/billflow/internal/shared"
)

// Repository defines persistence operations for billings. Every call is
// scoped by the owning user id.
type Repository interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	Create(ctx context.Context, userID uuid.UUID, in Input) (uuid.UUID, error)
	List(ctx context.Context, userID uuid.UUID) ([]Billing, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*Billing, error)
	Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ExpireOverdue(ctx context.Context, today time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const billingColumns = `id, user_id, owner_name, owner_email, owner_phone, date, value::text, observation, status, created_at, updated_at`

func scanBilling(row pgx.Row) (*Billing, error) {
	var (
		b      Billing
		date   pgtype.Date
		value  string
		status string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.OwnerName, &b.OwnerEmail, &b.OwnerPhone,
		&date, &value, &b.Observation, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("billing: scan: %w", err)
	}
	b.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("billing: parse value %q: %w", value, err)
	}
	b.Date = date.Time
	b.Status = Status(status)
	return &b, nil
}

// UserExists reports whether the user behind a bearer token still exists.
func (r *PGRepository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("billing: lookup user: %w", err)
	}
	return exists, nil
}

// Create inserts a PENDING billing.
func (r *PGRepository) Create(ctx context.Context, userID uuid.UUID, in Input) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`INSERT INTO billings (user_id, owner_name, owner_email, owner_phone, date, value, observation, status)
		 VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8) RETURNING id`,
		userID, in.OwnerName, in.OwnerEmail, in.OwnerPhone,
		pgtype.Date{Time: in.Date, Valid: true}, in.Value.String(), in.Observation, string(StatusPending),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("billing: insert: %w", err)
	}
	return id, nil
}

// List returns the billings of userID ordered by date.
func (r *PGRepository) List(ctx context.Context, userID uuid.UUID) ([]Billing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+billingColumns+` FROM billings WHERE user_id = $1 ORDER BY date, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("billing: list: %w", err)
	}
	defer rows.Close()

	billings := make([]Billing, 0)
	for rows.Next() {
		b, err := scanBilling(rows)
		if err != nil {
			return nil, err
		}
		billings = append(billings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: list rows: %w", err)
	}
	return billings, nil
}

// Get fetches one billing owned by userID.
func (r *PGRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Billing, error) {
	return scanBilling(r.db.QueryRow(ctx,
		`SELECT `+billingColumns+` FROM billings WHERE id = $1 AND user_id = $2`, id, userID))
}

// Update overwrites a billing owned by userID.
func (r *PGRepository) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE billings
		    SET owner_name = $3, owner_email = $4, owner_phone = $5, date = $6,
		        value = $7::text::numeric, observation = $8, status = $9, updated_at = NOW()
		  WHERE id = $1 AND user_id = $2`,
		id, userID, in.OwnerName, in.OwnerEmail, in.OwnerPhone,
		pgtype.Date{Time: in.Date, Valid: true}, in.Value.String(), in.Observation, string(in.Status),
	)
	if err != nil {
		return fmt.Errorf("billing: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a billing owned by userID.
func (r *PGRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM billings WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("billing: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExpireOverdue marks PENDING billings dated before today as EXPIRED.
func (r *PGRepository) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE billings SET status = $1, updated_at = NOW() WHERE status = $2 AND date < $3`,
		string(StatusExpired), string(StatusPending), pgtype.Date{Time: truncateDay(today), Valid: true},
	)
	if err != nil {
		return 0, fmt.Errorf("billing: expire overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
