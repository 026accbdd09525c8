package usecase

import (
	"context"
	"time"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	"AltScan/pkg/queue"
)

// NotifyJob consumes queued alerts and pushes them to the notifier.
type NotifyJob struct {
	notifier drepo.Notifier
	metrics  drepo.Metrics
}

func NewNotifyJob(notifier drepo.Notifier, metrics drepo.Metrics) *NotifyJob {
	return &NotifyJob{notifier: notifier, metrics: metrics}
}

func (j *NotifyJob) Name() string { return "telegram-alert" }

func (j *NotifyJob) Type() string { return MsgTypeAlert }

func (j *NotifyJob) Handle(ctx context.Context, payload interface{}) error {
	line, err := queue.ParsePayload[models.AlertLine](payload)
	if err != nil {
		j.metrics.RecordError("alert_job_payload")
		return err
	}

	start := time.Now()
	if err := j.notifier.Notify(ctx, line); err != nil {
		j.metrics.RecordError("alert_job_notify")
		return err
	}
	j.metrics.RecordLatency("notify", time.Since(start).Seconds())
	return nil
}

var _ queue.Job = (*NotifyJob)(nil)
