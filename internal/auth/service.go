package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billflow/billflow/internal/shared"
)

// ServiceConfig tunes the recovery flow and supplies optional collaborators.
type ServiceConfig struct {
	RecoveryTokenTTL time.Duration
	Notifier         Notifier
	Throttle         Throttle
	Events           Events
	Logger           *slog.Logger
	Now              func() time.Time
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	hasher   *Hasher
	tokens   *TokenManager
	notifier Notifier
	throttle Throttle
	events   Events
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher *Hasher, tokens *TokenManager, cfg ServiceConfig) *Service {
	s := &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		notifier: cfg.Notifier,
		throttle: cfg.Throttle,
		events:   cfg.Events,
		logger:   cfg.Logger,
		ttl:      cfg.RecoveryTokenTTL,
		now:      cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	if s.events == nil {
		s.events = nopEvents{}
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (uuid.UUID, error) {
	email := NormalizeEmail(in.Email)
	if _, err := s.repo.FindUserByEmail(ctx, email); err == nil {
		return uuid.Nil, ErrEmailTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return uuid.Nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := s.repo.CreateUser(ctx, User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: &hash,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return uuid.Nil, ErrEmailTaken
		}
		return uuid.Nil, err
	}
	return id, nil
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		s.hasher.Burn(password)
		return nil, ErrInvalidCredentials
	}
	if !user.HasPassword() {
		s.hasher.Burn(password)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(*user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.events.LoginFailed()
		}
		return "", err
	}
	return s.tokens.Issue(user.ID)
}

// Profile returns the user behind an authenticated identity.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordRecovery issues a recovery token when email belongs to a user.
// Unknown emails and throttled requests succeed silently.
func (s *Service) RequestPasswordRecovery(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.events.RecoveryRequested(RecoveryUnknown)
			return nil
		}
		s.events.RecoveryRequested(RecoveryFailed)
		return err
	}

	claimed := false
	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, email)
		if err != nil {
			s.logger.WarnContext(ctx, "recovery throttle", slog.Any("error", err))
		} else if !ok {
			s.events.RecoveryRequested(RecoveryThrottled)
			return nil
		} else {
			claimed = true
		}
	}

	token, err := s.repo.CreateToken(ctx, user.ID, TokenPasswordRecover)
	if err != nil {
		// No token exists, so the cooldown must not block a retry.
		if claimed {
			if rerr := s.throttle.Release(ctx, email); rerr != nil {
				s.logger.WarnContext(ctx, "recovery throttle release", slog.Any("error", rerr))
			}
		}
		s.events.RecoveryRequested(RecoveryFailed)
		return err
	}
	if err := s.notifier.NotifyPasswordRecovery(ctx, *user, *token); err != nil {
		s.events.RecoveryRequested(RecoveryFailed)
		return err
	}
	s.events.RecoveryRequested(RecoveryIssued)
	return nil
}

// ResetPassword consumes a recovery token and replaces the owner's password.
func (s *Service) ResetPassword(ctx context.Context, code, password string) error {
	id, err := uuid.Parse(strings.TrimSpace(code))
	if err != nil {
		return ErrInvalidRecoveryToken
	}

	expired := false
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		token, err := repo.FindTokenForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrInvalidRecoveryToken
			}
			return err
		}
		if token.Type != TokenPasswordRecover {
			return ErrInvalidRecoveryToken
		}
		if token.ExpiredAt(s.now(), s.ttl) {
			expired = true
			return repo.DeleteToken(ctx, token.ID)
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		if err := repo.UpdatePassword(ctx, token.UserID, hash); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrInvalidRecoveryToken
			}
			return err
		}
		return repo.DeleteToken(ctx, token.ID)
	})
	if err != nil {
		return err
	}
	if expired {
		return ErrInvalidRecoveryToken
	}
	return nil
}
