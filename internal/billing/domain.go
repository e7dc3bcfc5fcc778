package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"
)

// Status enumerates the lifecycle states of a billing.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusExpired Status = "EXPIRED"
	StatusPaid    Status = "PAID"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusExpired, StatusPaid:
		return true
	}
	return false
}

// Billing is a charge owned by a single user.
type Billing struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	OwnerName   string
	OwnerEmail  string
	OwnerPhone  *string
	Date        time.Time
	Value       decimal.Decimal
	Observation *string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input carries the user supplied billing fields.
type Input struct {
	OwnerName   string
	OwnerEmail  string
	OwnerPhone  *string
	Date        time.Time
	Value       decimal.Decimal
	Observation *string
}

// Draft carries billing fields as received from the client, before parsing.
type Draft struct {
	OwnerName   string
	OwnerEmail  string
	OwnerPhone  *string
	Date        string
	Value       string
	Observation *string
}

// UpdateDraft is a Draft with the requested status.
type UpdateDraft struct {
	Draft
	Status Status
}

// UpdateInput replaces every mutable field of a billing, status included.
type UpdateInput struct {
	Input
	Status Status
}

// DateLayout is the wire and storage format of billing dates.
const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date or an RFC3339 timestamp and returns the
// UTC calendar day at midnight.
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return truncateDay(t), nil
}

// ParseID reads a billing id. Malformed ids are reported as missing billings.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrBillingNotFound
	}
	return id, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// maxValue is the first amount that no longer fits NUMERIC(14,2).
var maxValue = decimal.New(1, 12)

// ParseValue reads a non-negative monetary amount with at most two decimals.
func ParseValue(raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidValue
	}
	if v.IsNegative() || !v.Equal(v.Round(2)) || v.GreaterThanOrEqual(maxValue) {
		return decimal.Decimal{}, ErrInvalidValue
	}
	return v, nil
}

// NormalizePhone parses raw, falling back to region for numbers without a
// country code, and returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
