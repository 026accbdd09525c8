package repository

import (
	"context"
	"time"

	"AltScan/internal/domain/models"
)

// Timeframe represents kline resolution buckets.
type Timeframe string

const (
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// BarProvider provides read-only access to historical klines for scanning
// and labeling.
type BarProvider interface {
	FetchBars(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Bar, error)
	FetchBarsFrom(ctx context.Context, symbol string, tf Timeframe, start time.Time, limit int) ([]models.Bar, error)
}
