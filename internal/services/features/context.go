package features

import (
	"context"

	"AltScan/internal/domain/models"
	"AltScan/internal/domain/repository"
	"AltScan/internal/indicator"
	"AltScan/pkg/logger"
)

// ContextConfig points the adjuster at the market reference symbol.
type ContextConfig struct {
	Symbol    string
	Timeframe repository.Timeframe
	EmaFast   int
	EmaSlow   int
	BullAdj   int
	BearAdj   int
	Limit     int
}

// ContextAdjuster nudges every score by the broad-market trend of one
// reference symbol. It degrades to a zero adjustment when the reference
// data cannot be read.
type ContextAdjuster struct {
	provider repository.BarProvider
	logger   *logger.Logger
	cfg      ContextConfig
}

func NewContextAdjuster(provider repository.BarProvider, lgr *logger.Logger, cfg ContextConfig) *ContextAdjuster {
	if cfg.Limit < 1 {
		cfg.Limit = 120
	}
	return &ContextAdjuster{provider: provider, logger: lgr, cfg: cfg}
}

// Adjust returns the bull adjustment when the reference trend is strictly
// ascending (close above fast EMA above slow EMA), the bear adjustment on
// the strict mirror, and zero otherwise or on any failure.
func (c *ContextAdjuster) Adjust(ctx context.Context) int {
	bars, err := c.provider.FetchBars(ctx, c.cfg.Symbol, c.cfg.Timeframe, c.cfg.Limit)
	if err != nil {
		c.logger.Warn("context fetch failed, no adjustment",
			logger.String("symbol", c.cfg.Symbol),
			logger.Error(err))
		return 0
	}
	if len(bars) == 0 {
		return 0
	}

	closes := models.Closes(bars)
	emaFast := indicator.EMA(closes, c.cfg.EmaFast)
	emaSlow := indicator.EMA(closes, c.cfg.EmaSlow)

	i := len(closes) - 1
	switch {
	case closes[i] > emaFast[i] && emaFast[i] > emaSlow[i]:
		return c.cfg.BullAdj
	case closes[i] < emaFast[i] && emaFast[i] < emaSlow[i]:
		return c.cfg.BearAdj
	default:
		return 0
	}
}
