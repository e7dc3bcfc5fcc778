package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billflow/billflow/internal/shared"
)

// DefaultPhoneRegion is used for owner phones written without a country code.
const DefaultPhoneRegion = "US"

// ServiceConfig tunes billing validation.
type ServiceConfig struct {
	PhoneRegion string
	Now         func() time.Time
}

// Service implements owner scoped billing operations. Every call resolves
// the user before looking at its arguments, so a token outliving its account
// always gets ErrUserNotFound.
type Service struct {
	repo   Repository
	region string
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	s := &Service{repo: repo, region: cfg.PhoneRegion, now: cfg.Now}
	if s.region == "" {
		s.region = DefaultPhoneRegion
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) ensureUser(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// prepare parses a draft. Dates before today (UTC) are rejected.
func (s *Service) prepare(d Draft) (Input, error) {
	date, err := ParseDate(strings.TrimSpace(d.Date))
	if err != nil {
		return Input{}, err
	}
	if date.Before(truncateDay(s.now())) {
		return Input{}, ErrInvalidDate
	}
	value, err := ParseValue(strings.TrimSpace(d.Value))
	if err != nil {
		return Input{}, err
	}
	in := Input{
		OwnerName:   strings.TrimSpace(d.OwnerName),
		OwnerEmail:  strings.TrimSpace(d.OwnerEmail),
		Date:        date,
		Value:       value,
		Observation: d.Observation,
	}
	if d.OwnerPhone != nil && strings.TrimSpace(*d.OwnerPhone) != "" {
		phone, err := NormalizePhone(*d.OwnerPhone, s.region)
		if err != nil {
			return Input{}, err
		}
		in.OwnerPhone = &phone
	}
	return in, nil
}

func notFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return ErrBillingNotFound
	}
	return err
}

// Create stores a new PENDING billing for userID.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, d Draft) (uuid.UUID, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return uuid.Nil, err
	}
	in, err := s.prepare(d)
	if err != nil {
		return uuid.Nil, err
	}
	return s.repo.Create(ctx, userID, in)
}

// List returns every billing owned by userID.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Billing, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID)
}

// Get returns one billing owned by userID.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, rawID string) (*Billing, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// Update overwrites a billing owned by userID. Any status may be set.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, rawID string, d UpdateDraft) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	in, err := s.prepare(d.Draft)
	if err != nil {
		return err
	}
	if !d.Status.Valid() {
		return ErrInvalidStatus
	}
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	return notFound(s.repo.Update(ctx, userID, id, UpdateInput{Input: in, Status: d.Status}))
}

// Delete removes a billing owned by userID.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, rawID string) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	return notFound(s.repo.Delete(ctx, userID, id))
}

// ExpireOverdue moves every PENDING billing whose date has passed to EXPIRED.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdue(ctx, s.now())
}
