package features

import (
	"context"

	"AltScan/internal/domain/models"
	"AltScan/internal/domain/repository"
	"AltScan/internal/indicator"
	"AltScan/pkg/logger"
)

// MTFConfirmer re-checks a symbol's trend on the confirmation and swing
// timeframes. Confirmation never blocks a scan: any fetch or compute
// problem logs a warning and reports false for that check.
type MTFConfirmer struct {
	provider repository.BarProvider
	logger   *logger.Logger
	limit    int
	emaFast  int
	emaSlow  int
}

func NewMTFConfirmer(provider repository.BarProvider, lgr *logger.Logger, limit, emaFast, emaSlow int) *MTFConfirmer {
	if limit < 1 {
		limit = 120
	}
	return &MTFConfirmer{
		provider: provider,
		logger:   lgr,
		limit:    limit,
		emaFast:  emaFast,
		emaSlow:  emaSlow,
	}
}

// ConfirmAlign reports EMA alignment on a single higher timeframe.
func (m *MTFConfirmer) ConfirmAlign(ctx context.Context, symbol string, tf repository.Timeframe) bool {
	align, _, ok := m.trend(ctx, symbol, tf)
	return ok && align
}

// SwingConfirm reports whether every swing timeframe agrees: EMA aligned
// and MACD histogram positive on each.
func (m *MTFConfirmer) SwingConfirm(ctx context.Context, symbol string, tfs []repository.Timeframe) bool {
	if len(tfs) == 0 {
		return false
	}
	for _, tf := range tfs {
		align, macdPos, ok := m.trend(ctx, symbol, tf)
		if !ok || !align || !macdPos {
			return false
		}
	}
	return true
}

func (m *MTFConfirmer) trend(ctx context.Context, symbol string, tf repository.Timeframe) (align, macdPos, ok bool) {
	bars, err := m.provider.FetchBars(ctx, symbol, tf, m.limit)
	if err != nil {
		m.logger.Warn("mtf fetch failed, treating as unconfirmed",
			logger.String("symbol", symbol),
			logger.String("tf", string(tf)),
			logger.Error(err))
		return false, false, false
	}
	if len(bars) == 0 {
		return false, false, false
	}

	closes := models.Closes(bars)
	emaFast := indicator.EMA(closes, m.emaFast)
	emaSlow := indicator.EMA(closes, m.emaSlow)
	hist := indicator.MACDHist(closes, macdFast, macdSlow, macdSignal)

	i := len(closes) - 1
	align = closes[i] > emaFast[i] && emaFast[i] > emaSlow[i]
	macdPos = hist[i] > 0
	return align, macdPos, true
}
