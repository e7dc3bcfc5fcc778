package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/billflow/billflow/internal/shared"
)

// memoryRepo is an in-memory Repository for tests.
type memoryRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*User
	tokens map[uuid.UUID]*Token
	now    func() time.Time

	findErr  error
	tokenErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:  make(map[uuid.UUID]*User),
		tokens: make(map[uuid.UUID]*Token),
		now:    time.Now,
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	// Snapshot so a failing fn leaves state untouched, like a rollback.
	m.mu.Lock()
	users := make(map[uuid.UUID]User, len(m.users))
	for k, v := range m.users {
		users[k] = *v
	}
	tokens := make(map[uuid.UUID]Token, len(m.tokens))
	for k, v := range m.tokens {
		tokens[k] = *v
	}
	m.mu.Unlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.users = make(map[uuid.UUID]*User, len(users))
		for k, v := range users {
			u := v
			m.users[k] = &u
		}
		m.tokens = make(map[uuid.UUID]*Token, len(tokens))
		for k, v := range tokens {
			t := v
			m.tokens[k] = &t
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryRepo) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) CreateUser(ctx context.Context, user User) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return uuid.Nil, shared.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = m.now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = &user
	return user.ID, nil
}

func (m *memoryRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = &hash
	u.UpdatedAt = m.now()
	return nil
}

func (m *memoryRepo) CreateToken(ctx context.Context, userID uuid.UUID, typ TokenType) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	if _, ok := m.users[userID]; !ok {
		return nil, shared.ErrNotFound
	}
	t := &Token{ID: uuid.New(), Type: typ, UserID: userID, CreatedAt: m.now()}
	m.tokens[t.ID] = t
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) FindTokenForUpdate(ctx context.Context, id uuid.UUID) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryRepo) DeleteToken(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *memoryRepo) tokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

func (m *memoryRepo) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memoryRepo) passwordHash(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok && u.PasswordHash != nil {
		return *u.PasswordHash
	}
	return ""
}

// recordingNotifier captures delivered recovery tokens.
type recordingNotifier struct {
	mu     sync.Mutex
	tokens []Token
	err    error
}

func (n *recordingNotifier) NotifyPasswordRecovery(ctx context.Context, user User, token Token) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, token)
	return n.err
}

func (n *recordingNotifier) last() (Token, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tokens) == 0 {
		return Token{}, false
	}
	return n.tokens[len(n.tokens)-1], true
}

// recordingEvents counts auth outcomes.
type recordingEvents struct {
	mu         sync.Mutex
	logins     int
	rejections []string
	recoveries []string
}

func (e *recordingEvents) LoginFailed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logins++
}

func (e *recordingEvents) RequestRejected(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rejections = append(e.rejections, reason)
}

func (e *recordingEvents) RecoveryRequested(outcome string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recoveries = append(e.recoveries, outcome)
}

var (
	_ Repository = (*memoryRepo)(nil)
	_ Events     = (*recordingEvents)(nil)
)
