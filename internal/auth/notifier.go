package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/hibiken/asynq"

	"github.com/billflow/billflow/jobs"
)

// Notifier delivers a password recovery token to its owner.
type Notifier interface {
	NotifyPasswordRecovery(ctx context.Context, user User, token Token) error
}

// LogNotifier writes the recovery token to the server log.
// It leaks the secret into logs and exists for local development only.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyPasswordRecovery logs the token id.
func (n LogNotifier) NotifyPasswordRecovery(ctx context.Context, user User, token Token) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "password recovery token issued",
		slog.String("user_id", user.ID.String()),
		slog.String("code", token.ID.String()),
	)
	return nil
}

// MailQueue enqueues outgoing email.
type MailQueue interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// QueueNotifier hands the recovery mail to the background worker.
type QueueNotifier struct {
	Queue    MailQueue
	ResetURL string
	TTL      time.Duration
}

// NotifyPasswordRecovery enqueues a recovery email for user.
func (n QueueNotifier) NotifyPasswordRecovery(ctx context.Context, user User, token Token) error {
	link := n.ResetURL
	if parsed, err := url.Parse(n.ResetURL); err == nil {
		q := parsed.Query()
		q.Set("code", token.ID.String())
		parsed.RawQuery = q.Encode()
		link = parsed.String()
	}
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n\nIf you did not ask for this, ignore this message.\n",
		user.Name, n.TTL, link)
	_, err := n.Queue.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      user.Email,
		Subject: "Password recovery",
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("auth: enqueue recovery mail: %w", err)
	}
	return nil
}
