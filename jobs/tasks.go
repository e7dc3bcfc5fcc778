package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/wneessen/go-mail"

	jobmetrics "github.com/billflow/billflow/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// Mailer delivers TaskTypeSendEmail tasks through an SMTP relay.
type Mailer struct {
	From    string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	send    sendFunc
}

// NewMailer builds a mailer for the relay at host:port. STARTTLS is used when
// the relay offers it.
func NewMailer(host string, port int, from string, logger *slog.Logger, metrics *jobmetrics.Metrics) (*Mailer, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: client: %w", err)
	}
	return &Mailer{
		From:    from,
		Logger:  logger,
		Metrics: metrics,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// Handle processes TaskTypeSendEmail tasks.
func (m *Mailer) Handle(ctx context.Context, t *asynq.Task) error {
	if m == nil || m.send == nil {
		return errors.New("mailer: not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if strings.TrimSpace(payload.To) == "" {
		return asynq.SkipRetry
	}
	msg, err := buildMessage(m.From, payload)
	if err != nil {
		m.logger().WarnContext(ctx, "drop email", slog.String("to", payload.To), slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	tracker := m.metrics().Track(TaskTypeSendEmail)
	if err := m.send(ctx, msg); err != nil {
		m.logger().ErrorContext(ctx, "send email", slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(fmt.Errorf("mailer: send: %w", err))
	}
	m.metrics().MailSent()
	m.logger().InfoContext(ctx, "email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return tracker.End(nil)
}

func (m *Mailer) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

func (m *Mailer) metrics() *jobmetrics.Metrics {
	if m.Metrics != nil {
		return m.Metrics
	}
	return defaultJobMetrics
}

func buildMessage(from string, p SendEmailPayload) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(strings.TrimSpace(p.To)); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject(p.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, p.Body)
	return msg, nil
}
