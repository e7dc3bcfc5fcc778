package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/billflow/billflow/internal/shared"
)

// memoryRepo is an in-memory Repository for tests.
type memoryRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]bool
	billings map[uuid.UUID]*Billing
	seq      time.Time

	userErr error
}

func newMemoryRepo(users ...uuid.UUID) *memoryRepo {
	m := &memoryRepo{
		users:    make(map[uuid.UUID]bool),
		billings: make(map[uuid.UUID]*Billing),
		seq:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, u := range users {
		m.users[u] = true
	}
	return m
}

func (m *memoryRepo) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userErr != nil {
		return false, m.userErr
	}
	return m.users[userID], nil
}

func (m *memoryRepo) Create(ctx context.Context, userID uuid.UUID, in Input) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = m.seq.Add(time.Second)
	b := &Billing{
		ID:          uuid.New(),
		UserID:      userID,
		OwnerName:   in.OwnerName,
		OwnerEmail:  in.OwnerEmail,
		OwnerPhone:  in.OwnerPhone,
		Date:        in.Date,
		Value:       in.Value,
		Observation: in.Observation,
		Status:      StatusPending,
		CreatedAt:   m.seq,
		UpdatedAt:   m.seq,
	}
	m.billings[b.ID] = b
	return b.ID, nil
}

func (m *memoryRepo) List(ctx context.Context, userID uuid.UUID) ([]Billing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Billing, 0)
	for _, b := range m.billings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, userID, id uuid.UUID) (*Billing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.billings[id]
	if !ok || b.UserID != userID {
		return nil, shared.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memoryRepo) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.billings[id]
	if !ok || b.UserID != userID {
		return shared.ErrNotFound
	}
	b.OwnerName = in.OwnerName
	b.OwnerEmail = in.OwnerEmail
	b.OwnerPhone = in.OwnerPhone
	b.Date = in.Date
	b.Value = in.Value
	b.Observation = in.Observation
	b.Status = in.Status
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.billings[id]
	if !ok || b.UserID != userID {
		return shared.ErrNotFound
	}
	delete(m.billings, id)
	return nil
}

func (m *memoryRepo) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := truncateDay(today)
	var n int64
	for _, b := range m.billings {
		if b.Status == StatusPending && b.Date.Before(cutoff) {
			b.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.billings)
}

func (m *memoryRepo) removeUser(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

var _ Repository = (*memoryRepo)(nil)
