package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	mid "AltScan/internal/middleware"
	"AltScan/internal/services/features"
	"AltScan/internal/services/scoring"
	"AltScan/pkg/config"
	"AltScan/pkg/logger"
)

type stubBars struct {
	mu   sync.Mutex
	bars map[string][]models.Bar // symbol|tf
	errs map[string]error        // symbol -> primary fetch error
}

func (s *stubBars) FetchBars(_ context.Context, symbol string, tf drepo.Timeframe, _ int) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[symbol]; ok {
		return nil, err
	}
	bars, ok := s.bars[symbol+"|"+string(tf)]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s %s", symbol, tf)
	}
	return bars, nil
}

func (s *stubBars) FetchBarsFrom(ctx context.Context, symbol string, tf drepo.Timeframe, _ time.Time, limit int) ([]models.Bar, error) {
	return s.FetchBars(ctx, symbol, tf, limit)
}

type memoryLog struct {
	mu    sync.Mutex
	lines []*models.AlertLine
}

func (l *memoryLog) Append(_ context.Context, line *models.AlertLine) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
	return nil
}

func (l *memoryLog) Recent(string, string, int) []*models.AlertLine { return nil }
func (l *memoryLog) Close() error                                   { return nil }

func (l *memoryLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

type countMetrics struct {
	mu      sync.Mutex
	signals int
	errs    map[string]int
}

func newCountMetrics() *countMetrics { return &countMetrics{errs: make(map[string]int)} }

func (m *countMetrics) RecordSignal(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
}
func (m *countMetrics) RecordAlert(string) {}
func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}
func (m *countMetrics) RecordLastScore(string, float64) {}
func (m *countMetrics) RecordLatency(string, float64)   {}

type recordingSink struct {
	mu  sync.Mutex
	got []*models.AlertLine
}

func (s *recordingSink) Deliver(_ context.Context, line *models.AlertLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, line)
	return nil
}

type recordingNotifier struct{ got []*models.AlertLine }

func (n *recordingNotifier) Notify(_ context.Context, line *models.AlertLine) error {
	n.got = append(n.got, line)
	return nil
}

type recordingQueue struct {
	msgType string
	payload interface{}
	err     error
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.msgType = msgType
	q.payload = payload
	return q.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return lgr
}

func risingBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	start := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		base := 100 + float64(i)
		bars[i] = models.Bar{
			OpenTime:  start.Add(time.Duration(i) * 5 * time.Minute),
			CloseTime: start.Add(time.Duration(i+1) * 5 * time.Minute),
			Open:      base,
			High:      base + 2,
			Low:       base - 1,
			Close:     base + 1,
			Volume:    1000,
		}
	}
	return bars
}

func scanConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scan.Symbols = []string{"ETH_USDT"}
	cfg.Scan.LookbackWindow = 20
	cfg.Scan.MinMovePct = 0.002
	cfg.Scan.VolSpikeMult = 1.5
	cfg.Scan.EmaFast = 20
	cfg.Scan.EmaSlow = 50
	cfg.Scan.KlineLimit = 60
	cfg.Scan.AlertThreshold = 4
	cfg.Timeframes.Primary = "5m"
	cfg.Timeframes.Confirm = "15m"
	cfg.Timeframes.Swing = []string{"1h", "4h"}
	cfg.Weights = config.Weights{EmaAlign: 2, Macd: 1, VolSpike: 1, Breakout: 3, Retest: 2}
	cfg.MTFWeights = config.MTFWeights{Ema: 1, Swing: 2}
	cfg.Levels.SLAtrMult = 1.0
	cfg.Levels.TPAtrMults = []float64{1.0, 2.0}
	cfg.Context.Symbol = "BTC_USDT"
	cfg.Context.Timeframe = "15m"
	cfg.Context.EmaFast = 20
	cfg.Context.EmaSlow = 50
	cfg.Context.BullAdj = 1
	cfg.Context.BearAdj = -1
	return cfg
}

func newTestAnalyzer(t *testing.T, provider drepo.BarProvider, cfg *config.Config, opts ...AnalyzerOption) *SymbolAnalyzer {
	t.Helper()
	lgr := testLogger(t)
	mtf := features.NewMTFConfirmer(provider, lgr, cfg.Scan.KlineLimit, cfg.Scan.EmaFast, cfg.Scan.EmaSlow)
	market := features.NewContextAdjuster(provider, lgr, features.ContextConfig{
		Symbol:    cfg.Context.Symbol,
		Timeframe: drepo.NormalizeTimeframe(cfg.Context.Timeframe),
		EmaFast:   cfg.Context.EmaFast,
		EmaSlow:   cfg.Context.EmaSlow,
		BullAdj:   cfg.Context.BullAdj,
		BearAdj:   cfg.Context.BearAdj,
		Limit:     cfg.Scan.KlineLimit,
	})
	scorer := scoring.NewScorer(cfg.Weights, cfg.MTFWeights)
	return NewSymbolAnalyzer(provider, mtf, market, scorer, cfg, opts...)
}

func uptrendProvider() *stubBars {
	up := risingBars(60)
	return &stubBars{
		bars: map[string][]models.Bar{
			"ETH_USDT|5m":  up,
			"ETH_USDT|15m": up,
			"ETH_USDT|1h":  up,
			"ETH_USDT|4h":  up,
			"BTC_USDT|15m": up,
		},
	}
}

func TestAnalyzeUptrendDecidesBuy(t *testing.T) {
	cfg := scanConfig()
	analyzer := newTestAnalyzer(t, uptrendProvider(), cfg)

	rec, err := analyzer.Analyze(context.Background(), "ETH_USDT")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if rec.Side != models.SideBuy {
		t.Fatalf("Side = %s, want BUY for a confirmed uptrend", rec.Side)
	}
	if !rec.Features.EmaAlign || !rec.Features.MacdPos {
		t.Errorf("trend flags = %+v, want ema_align and macd_pos raised", rec.Features)
	}
	if !rec.Features.MtfEmaAlign || !rec.Features.SwingConfirm {
		t.Errorf("mtf flags = align %v swing %v, want both confirmed", rec.Features.MtfEmaAlign, rec.Features.SwingConfirm)
	}
	if rec.Features.CtxAdj != 1 {
		t.Errorf("CtxAdj = %d, want +1 from a rising reference", rec.Features.CtxAdj)
	}
	if rec.Score.Final != rec.Score.Base+rec.Score.Mtf+rec.Score.Ctx {
		t.Errorf("Final = %d, want Base+Mtf+Ctx", rec.Score.Final)
	}
	if rec.Levels.Empty() {
		t.Error("Levels empty for a decided side")
	}
	if rec.Levels.StopLoss >= rec.Levels.Entry {
		t.Errorf("StopLoss %v not below Entry %v for BUY", rec.Levels.StopLoss, rec.Levels.Entry)
	}
	if rec.Exchange != "MEXC" || rec.Timeframe != "5m" {
		t.Errorf("record meta = %s/%s, want MEXC/5m", rec.Exchange, rec.Timeframe)
	}
}

func TestAnalyzeConfirmationFailureStaysNeutral(t *testing.T) {
	cfg := scanConfig()
	provider := uptrendProvider()
	// only the primary series exists; confirm, swing and reference fetches fail
	provider.bars = map[string][]models.Bar{"ETH_USDT|5m": provider.bars["ETH_USDT|5m"]}
	analyzer := newTestAnalyzer(t, provider, cfg)

	rec, err := analyzer.Analyze(context.Background(), "ETH_USDT")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if rec.Features.MtfEmaAlign || rec.Features.SwingConfirm {
		t.Error("confirmation flags raised despite fetch failures")
	}
	if rec.Features.CtxAdj != 0 {
		t.Errorf("CtxAdj = %d, want neutral 0 on reference failure", rec.Features.CtxAdj)
	}
}

type stubLive struct {
	bars map[string]models.Bar // symbol|tf
}

func (s *stubLive) Latest(symbol, tf string) (models.Bar, bool) {
	bar, ok := s.bars[symbol+"|"+tf]
	return bar, ok
}

func TestAnalyzeOverlaysLiveBar(t *testing.T) {
	cfg := scanConfig()
	provider := uptrendProvider()
	rest := provider.bars["ETH_USDT|5m"]
	lastOpen := rest[len(rest)-1].OpenTime

	live := &stubLive{bars: map[string]models.Bar{}}
	analyzer := newTestAnalyzer(t, provider, cfg, WithLiveBars(live))

	// a fresher tick for the same window replaces the fetched bar
	fresh := rest[len(rest)-1]
	fresh.Close = 161.5
	fresh.High = 162
	live.bars["ETH_USDT|5m"] = fresh

	rec, err := analyzer.Analyze(context.Background(), "ETH_USDT")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if rec.Levels.Entry != 161.5 {
		t.Fatalf("Entry = %v, want the streamed close 161.5", rec.Levels.Entry)
	}
	if rest[len(rest)-1].Close != 160 {
		t.Fatalf("fetched series mutated, last close = %v", rest[len(rest)-1].Close)
	}

	// a push from the next window is appended, not swapped
	next := fresh
	next.OpenTime = lastOpen.Add(5 * time.Minute)
	next.Close = 163
	next.High = 164
	live.bars["ETH_USDT|5m"] = next

	rec, err = analyzer.Analyze(context.Background(), "ETH_USDT")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if rec.Levels.Entry != 163 {
		t.Fatalf("Entry = %v, want the appended close 163", rec.Levels.Entry)
	}
	if len(provider.bars["ETH_USDT|5m"]) != 60 {
		t.Fatalf("fetched series grew to %d bars", len(provider.bars["ETH_USDT|5m"]))
	}

	// a stale push older than the snapshot is ignored
	stale := fresh
	stale.OpenTime = lastOpen.Add(-5 * time.Minute)
	live.bars["ETH_USDT|5m"] = stale

	rec, err = analyzer.Analyze(context.Background(), "ETH_USDT")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if rec.Levels.Entry != 160 {
		t.Errorf("Entry = %v, want the fetched close 160", rec.Levels.Entry)
	}
}

func TestDecideSidePolicy(t *testing.T) {
	score := func(final int) models.ScoreResult { return models.ScoreResult{Base: final, Final: final} }

	cases := []struct {
		name        string
		long, short int
		want        models.Side
		wantFinal   int
	}{
		{"long clears", 5, 3, models.SideBuy, 5},
		{"short clears", 3, 5, models.SideSell, 5},
		{"tie favors buy", 5, 5, models.SideBuy, 5},
		{"neither clears keeps long", 3, 3, models.SideNone, 3},
		{"neither clears keeps better short", 1, 3, models.SideNone, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			side, res := decide(score(tc.long), score(tc.short), 4)
			if side != tc.want {
				t.Fatalf("decide(%d, %d) side = %s, want %s", tc.long, tc.short, side, tc.want)
			}
			if res.Final != tc.wantFinal {
				t.Errorf("decide(%d, %d) final = %d, want %d", tc.long, tc.short, res.Final, tc.wantFinal)
			}
		})
	}
}

func TestScanOnceIsolatesSymbolFailures(t *testing.T) {
	cfg := scanConfig()
	provider := uptrendProvider()
	provider.errs = map[string]error{"BAD_USDT": errors.New("kline api down")}

	analyzer := newTestAnalyzer(t, provider, cfg)
	log := &memoryLog{}
	metrics := newCountMetrics()
	sink := &recordingSink{}
	pipe := mid.NewAlertPipeline(sink, metrics)

	scanner := NewScanner(analyzer, log, pipe, metrics, testLogger(t),
		[]string{"ETH_USDT", "BAD_USDT"}, time.Minute, 2)

	report := scanner.ScanOnce(context.Background())

	if report.Scanned != 2 {
		t.Fatalf("Scanned = %d, want 2", report.Scanned)
	}
	if _, ok := report.Errors["BAD_USDT"]; !ok {
		t.Fatalf("Errors = %v, want BAD_USDT entry", report.Errors)
	}
	if _, ok := report.Errors["ETH_USDT"]; ok {
		t.Fatal("healthy symbol reported as failed")
	}
	if report.Alerted != 1 {
		t.Errorf("Alerted = %d, want 1", report.Alerted)
	}
	if log.count() != 1 {
		t.Errorf("signal log got %d lines, want only the analyzed symbol", log.count())
	}
	if len(sink.got) != 1 || sink.got[0].Symbol != "ETH_USDT" {
		t.Errorf("sink got %d alerts, want the ETH_USDT one", len(sink.got))
	}
	if metrics.errs["scan_symbol"] != 1 {
		t.Errorf("scan_symbol errors = %d, want 1", metrics.errs["scan_symbol"])
	}
}

func TestScanOnceLogsNoneWithoutAlert(t *testing.T) {
	cfg := scanConfig()
	cfg.Scan.AlertThreshold = 100 // nothing can clear it

	analyzer := newTestAnalyzer(t, uptrendProvider(), cfg)
	log := &memoryLog{}
	metrics := newCountMetrics()
	sink := &recordingSink{}
	pipe := mid.NewAlertPipeline(sink, metrics)

	scanner := NewScanner(analyzer, log, pipe, metrics, testLogger(t),
		[]string{"ETH_USDT"}, time.Minute, 2)
	report := scanner.ScanOnce(context.Background())

	if report.Alerted != 0 {
		t.Fatalf("Alerted = %d, want 0 below threshold", report.Alerted)
	}
	if log.count() != 1 {
		t.Fatalf("signal log got %d lines, want the NONE record logged", log.count())
	}
	if len(sink.got) != 0 {
		t.Errorf("sink got %d alerts, want none", len(sink.got))
	}
	if report.Outcomes[0].Side != "NONE" {
		t.Errorf("outcome side = %s, want NONE", report.Outcomes[0].Side)
	}
}

func TestDispatcherRoutesBackends(t *testing.T) {
	line := &models.AlertLine{ID: "x", Timestamp: "2026-08-20T10:00:00Z", Symbol: "ETH_USDT", Side: "BUY"}

	notifier := &recordingNotifier{}
	q := &recordingQueue{}
	metrics := newCountMetrics()

	direct := NewAlertDispatcher(notifier, q, metrics, "direct")
	if err := direct.Deliver(context.Background(), line); err != nil {
		t.Fatalf("direct Deliver() error = %v", err)
	}
	if len(notifier.got) != 1 {
		t.Fatalf("notifier got %d alerts, want 1", len(notifier.got))
	}

	queued := NewAlertDispatcher(notifier, q, metrics, "queue")
	if err := queued.Deliver(context.Background(), line); err != nil {
		t.Fatalf("queue Deliver() error = %v", err)
	}
	if q.msgType != MsgTypeAlert {
		t.Errorf("queued type = %s, want %s", q.msgType, MsgTypeAlert)
	}

	bad := NewAlertDispatcher(notifier, q, metrics, "carrier-pigeon")
	if err := bad.Deliver(context.Background(), line); err == nil {
		t.Fatal("unknown backend accepted")
	}
}
