package repository

import (
	"context"

	"AltScan/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.BarEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Notifier delivers an alert to an external channel. Implementations log
// and swallow their own misconfiguration so a scan never fails on delivery.
type Notifier interface {
	Notify(ctx context.Context, line *models.AlertLine) error
}

// SignalLog is the append-only record of scan outcomes.
type SignalLog interface {
	Append(ctx context.Context, line *models.AlertLine) error
	Recent(symbol string, side string, limit int) []*models.AlertLine
	Close() error
}

type Metrics interface {
	RecordSignal(symbol, side string)
	RecordAlert(outcome string)
	RecordError(kind string)
	RecordLastScore(symbol string, score float64)
	RecordLatency(op string, seconds float64)
}
