package usecase

import (
	"context"
	"fmt"
	"time"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	mid "AltScan/internal/middleware"
	"AltScan/pkg/queue"
)

// MsgTypeAlert is the queue message type carrying one alert line.
const MsgTypeAlert = "signal.alert"

// AlertDispatcher routes a finished alert to the configured backend:
// straight to the notifier, or onto the Redis queue for the worker pool.
type AlertDispatcher struct {
	notifier drepo.Notifier
	pub      queue.QueueService
	metrics  drepo.Metrics
	backend  string
}

// NewAlertDispatcher creates a new AlertDispatcher instance.
func NewAlertDispatcher(notifier drepo.Notifier, pub queue.QueueService, metrics drepo.Metrics, backend string) *AlertDispatcher {
	return &AlertDispatcher{
		notifier: notifier,
		pub:      pub,
		metrics:  metrics,
		backend:  backend,
	}
}

// Deliver sends one alert through the configured backend.
func (d *AlertDispatcher) Deliver(ctx context.Context, line *models.AlertLine) error {
	if line == nil {
		return fmt.Errorf("alert is nil")
	}

	start := time.Now()
	var err error

	switch d.backend {
	case "direct":
		err = d.notifier.Notify(ctx, line)
	case "queue":
		err = d.pub.PublishMessage(ctx, MsgTypeAlert, line)
	default:
		err = fmt.Errorf("unknown backend: %s", d.backend)
	}

	if err != nil {
		d.metrics.RecordError("dispatch")
		return fmt.Errorf("dispatch alert: %w", err)
	}

	d.metrics.RecordLatency("dispatch", time.Since(start).Seconds())
	return nil
}

var _ mid.Sink = (*AlertDispatcher)(nil)
