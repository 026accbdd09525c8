package features

import (
	"context"
	"fmt"
	"testing"
	"time"

	"AltScan/internal/domain/models"
	"AltScan/internal/domain/repository"
	"AltScan/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func risingBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = models.Bar{Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

var extractCfg = Config{Window: 20, MinMovePct: 0.002, VolSpikeMult: 1.5, EmaFast: 20, EmaSlow: 50}

func TestBuildSnapshotEmptySeries(t *testing.T) {
	if _, err := BuildSnapshot(nil, extractCfg); err == nil {
		t.Fatalf("expected error for empty series")
	}
}

func TestBuildSnapshotUptrend(t *testing.T) {
	snap, err := BuildSnapshot(risingBars(80), extractCfg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !snap.Features.EmaAlign || snap.Features.EmaDown {
		t.Fatalf("steady rise should align the EMAs, got %+v", snap.Features)
	}
	if !snap.Features.MacdPos || snap.Features.MacdNeg {
		t.Fatalf("steady rise should keep the histogram positive, got %+v", snap.Features)
	}
	if snap.Features.VolSpike {
		t.Fatalf("flat volume is not a spike")
	}
	if snap.LastClose != 179 {
		t.Fatalf("unexpected last close %v", snap.LastClose)
	}
	if snap.ATR <= 0 {
		t.Fatalf("expected positive atr, got %v", snap.ATR)
	}
}

func TestBuildSnapshotVolumeSpike(t *testing.T) {
	bars := risingBars(80)
	bars[79].Volume = 10000
	snap, err := BuildSnapshot(bars, extractCfg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !snap.Features.VolSpike {
		t.Fatalf("tenfold volume should raise the spike flag")
	}
}

func TestBuildSnapshotSingleBar(t *testing.T) {
	snap, err := BuildSnapshot(risingBars(1), extractCfg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if snap.Features.Breakout || snap.Features.Retest || snap.Features.BounceSupport {
		t.Fatalf("single bar has no structure to flag, got %+v", snap.Features)
	}
}

// stubProvider serves canned series per symbol/timeframe.
type stubProvider struct {
	bars map[string][]models.Bar
	err  error
}

func (s *stubProvider) key(symbol string, tf repository.Timeframe) string {
	return fmt.Sprintf("%s/%s", symbol, tf)
}

func (s *stubProvider) FetchBars(_ context.Context, symbol string, tf repository.Timeframe, _ int) ([]models.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars[s.key(symbol, tf)], nil
}

func (s *stubProvider) FetchBarsFrom(_ context.Context, _ string, _ repository.Timeframe, _ time.Time, _ int) ([]models.Bar, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestSwingConfirmAllTimeframesAgree(t *testing.T) {
	p := &stubProvider{bars: map[string][]models.Bar{
		"ALT_USDT/1h": risingBars(80),
		"ALT_USDT/4h": risingBars(80),
	}}
	m := NewMTFConfirmer(p, testLogger(t), 120, 20, 50)
	if !m.SwingConfirm(context.Background(), "ALT_USDT", []repository.Timeframe{repository.TF1h, repository.TF4h}) {
		t.Fatalf("agreeing swing timeframes should confirm")
	}
}

func TestSwingConfirmFailsSoft(t *testing.T) {
	p := &stubProvider{err: fmt.Errorf("upstream down")}
	m := NewMTFConfirmer(p, testLogger(t), 120, 20, 50)
	if m.SwingConfirm(context.Background(), "ALT_USDT", []repository.Timeframe{repository.TF1h}) {
		t.Fatalf("fetch failure must not confirm")
	}
}

func TestContextAdjusterBullishReference(t *testing.T) {
	p := &stubProvider{bars: map[string][]models.Bar{
		"BTC_USDT/15m": risingBars(80),
	}}
	c := NewContextAdjuster(p, testLogger(t), ContextConfig{
		Symbol: "BTC_USDT", Timeframe: repository.TF15m,
		EmaFast: 20, EmaSlow: 50, BullAdj: 1, BearAdj: -1,
	})
	if got := c.Adjust(context.Background()); got != 1 {
		t.Fatalf("expected bull adjustment, got %d", got)
	}
}

func TestContextAdjusterFailsToZero(t *testing.T) {
	p := &stubProvider{err: fmt.Errorf("upstream down")}
	c := NewContextAdjuster(p, testLogger(t), ContextConfig{
		Symbol: "BTC_USDT", Timeframe: repository.TF15m,
		EmaFast: 20, EmaSlow: 50, BullAdj: 1, BearAdj: -1,
	})
	if got := c.Adjust(context.Background()); got != 0 {
		t.Fatalf("expected zero adjustment on failure, got %d", got)
	}
}
