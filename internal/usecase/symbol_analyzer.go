package usecase

import (
	"context"
	"fmt"
	"time"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	"AltScan/internal/services/features"
	"AltScan/internal/services/levels"
	"AltScan/internal/services/scoring"
	"AltScan/pkg/config"
)

const exchangeName = "MEXC"

// LiveBars supplies the freshest streamed bar for a symbol and
// timeframe, when one is tracked.
type LiveBars interface {
	Latest(symbol, tf string) (models.Bar, bool)
}

// SymbolAnalyzer runs one full analysis of one symbol: primary series
// fetch, feature extraction, higher-timeframe confirmation, market
// context, both-direction scoring, side decision and levels.
type SymbolAnalyzer struct {
	provider drepo.BarProvider
	mtf      *features.MTFConfirmer
	market   *features.ContextAdjuster
	scorer   *scoring.Scorer
	live     LiveBars

	extract   features.Config
	levels    levels.Config
	primary   drepo.Timeframe
	confirm   drepo.Timeframe
	swing     []drepo.Timeframe
	limit     int
	threshold int
}

type AnalyzerOption func(*SymbolAnalyzer)

// WithLiveBars overlays the freshest streamed bar onto each fetched
// primary series, so analysis sees ticks newer than the REST snapshot.
func WithLiveBars(live LiveBars) AnalyzerOption {
	return func(a *SymbolAnalyzer) { a.live = live }
}

// NewSymbolAnalyzer wires the analysis pieces from config. The confirmer
// and adjuster carry their own fail-soft behavior; only the primary
// series fetch can abort a symbol.
func NewSymbolAnalyzer(
	provider drepo.BarProvider,
	mtf *features.MTFConfirmer,
	market *features.ContextAdjuster,
	scorer *scoring.Scorer,
	cfg *config.Config,
	opts ...AnalyzerOption,
) *SymbolAnalyzer {
	swing := make([]drepo.Timeframe, 0, len(cfg.Timeframes.Swing))
	for _, tf := range cfg.Timeframes.Swing {
		swing = append(swing, drepo.NormalizeTimeframe(tf))
	}
	a := &SymbolAnalyzer{
		provider: provider,
		mtf:      mtf,
		market:   market,
		scorer:   scorer,
		extract: features.Config{
			Window:       cfg.Scan.LookbackWindow,
			MinMovePct:   cfg.Scan.MinMovePct,
			VolSpikeMult: cfg.Scan.VolSpikeMult,
			EmaFast:      cfg.Scan.EmaFast,
			EmaSlow:      cfg.Scan.EmaSlow,
		},
		levels: levels.Config{
			SLAtrMult:  cfg.Levels.SLAtrMult,
			TPAtrMults: cfg.Levels.TPAtrMults,
		},
		primary:   drepo.NormalizeTimeframe(cfg.Timeframes.Primary),
		confirm:   drepo.NormalizeTimeframe(cfg.Timeframes.Confirm),
		swing:     swing,
		limit:     cfg.Scan.KlineLimit,
		threshold: cfg.Scan.AlertThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces the full signal record for one symbol. Confirmation
// and context failures degrade to neutral values; a primary fetch or
// extraction failure abandons the symbol.
func (a *SymbolAnalyzer) Analyze(ctx context.Context, symbol string) (*models.SignalRecord, error) {
	bars, err := a.provider.FetchBars(ctx, symbol, a.primary, a.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", symbol, a.primary, err)
	}
	bars = a.overlay(symbol, bars)

	snap, err := features.BuildSnapshot(bars, a.extract)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", symbol, err)
	}

	fs := snap.Features
	fs.MtfEmaAlign = a.mtf.ConfirmAlign(ctx, symbol, a.confirm)
	fs.SwingConfirm = a.mtf.SwingConfirm(ctx, symbol, a.swing)
	fs.CtxAdj = a.market.Adjust(ctx)

	long := a.scorer.Score(fs, models.SideBuy)
	short := a.scorer.Score(fs, models.SideSell)
	side, score := decide(long, short, a.threshold)

	return &models.SignalRecord{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Exchange:  exchangeName,
		Timeframe: string(a.primary),
		Side:      side,
		Features:  fs,
		Score:     score,
		Levels:    levels.Calc(side, snap.LastClose, snap.ATR, a.levels),
	}, nil
}

// overlay swaps the fetched in-progress bar for the streamed one when
// the stream has a fresher view. A pushed bar from a later window is
// appended instead, keeping open times strictly ascending. The fetched
// slice may sit in a shared cache, so changes go onto a copy.
func (a *SymbolAnalyzer) overlay(symbol string, bars []models.Bar) []models.Bar {
	if a.live == nil || len(bars) == 0 {
		return bars
	}
	fresh, ok := a.live.Latest(symbol, string(a.primary))
	if !ok || fresh.OpenTime.Before(bars[len(bars)-1].OpenTime) {
		return bars
	}
	out := make([]models.Bar, len(bars), len(bars)+1)
	copy(out, bars)
	if fresh.OpenTime.Equal(out[len(out)-1].OpenTime) {
		out[len(out)-1] = fresh
		return out
	}
	return append(out, fresh)
}

// PrimaryTimeframe reports the timeframe scans run on.
func (a *SymbolAnalyzer) PrimaryTimeframe() drepo.Timeframe { return a.primary }

// decide picks the direction whose final score clears the threshold.
// When both clear it the higher score wins and BUY wins an exact tie.
// A scan below threshold stays NONE but keeps the better breakdown for
// the record.
func decide(long, short models.ScoreResult, threshold int) (models.Side, models.ScoreResult) {
	switch {
	case long.Final >= threshold && long.Final >= short.Final:
		return models.SideBuy, long
	case short.Final >= threshold:
		return models.SideSell, short
	case long.Final >= short.Final:
		return models.SideNone, long
	default:
		return models.SideNone, short
	}
}
