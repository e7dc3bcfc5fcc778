package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/billflow/billflow/internal/jobs"
)

// TaskBillingExpireOverdue marks PENDING billings past their date as EXPIRED.
const TaskBillingExpireOverdue = "billing:expire_overdue"

// BillingExpirer performs the overdue sweep.
type BillingExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpireOverdueJob runs the overdue sweep on schedule.
type ExpireOverdueJob struct {
	Billing BillingExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewExpireOverdueJob initialises the overdue sweep handler.
func NewExpireOverdueJob(billing BillingExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpireOverdueJob {
	return &ExpireOverdueJob{Billing: billing, Logger: logger, Metrics: metrics}
}

// NewExpireOverdueTask builds the task registered with the scheduler.
func NewExpireOverdueTask() *asynq.Task {
	return asynq.NewTask(TaskBillingExpireOverdue, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

// Handle executes one sweep.
func (j *ExpireOverdueJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Billing == nil {
		return errors.New("expire overdue: handler not configured")
	}
	start := time.Now()
	tracker := j.metrics().Track(TaskBillingExpireOverdue)

	n, err := j.Billing.ExpireOverdue(ctx)
	if err != nil {
		j.logger().ErrorContext(ctx, "sweep failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddExpired(n)
	j.logger().InfoContext(ctx, "completed overdue sweep",
		slog.Int64("expired", n),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *ExpireOverdueJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBillingExpireOverdue))
	}
	return slog.Default().With(slog.String("job", TaskBillingExpireOverdue))
}

func (j *ExpireOverdueJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
