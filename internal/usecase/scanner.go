package usecase

import (
	"context"
	"sync"
	"time"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	mid "AltScan/internal/middleware"
	"AltScan/pkg/cache"
	"AltScan/pkg/logger"
)

const scanLockKey = "scan:cycle"

// SymbolOutcome is one symbol's result inside a cycle report.
type SymbolOutcome struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side,omitempty"`
	Score  int    `json:"final_score"`
	Error  string `json:"error,omitempty"`
}

// ScanReport summarizes one completed scan cycle.
type ScanReport struct {
	At       time.Time         `json:"at"`
	Duration time.Duration     `json:"duration"`
	Scanned  int               `json:"scanned"`
	Alerted  int               `json:"alerted"`
	Outcomes []SymbolOutcome   `json:"outcomes"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Scanner drives the periodic scan cycle: a bounded fan-out across the
// configured symbols, one analysis each, log append, metrics, dispatch.
// One failing symbol never aborts the cycle.
type Scanner struct {
	analyzer *SymbolAnalyzer
	log      drepo.SignalLog
	pipe     *mid.AlertPipeline
	metrics  drepo.Metrics
	logger   *logger.Logger
	locker   cache.Service // optional, guards against overlapping deploys

	symbols  []string
	interval time.Duration
	maxConc  int

	mu   sync.RWMutex
	last *ScanReport
}

type ScannerOption func(*Scanner)

// WithCycleLock makes cycles take a short distributed lock first, so two
// replicas sharing one Redis never double-alert.
func WithCycleLock(c cache.Service) ScannerOption {
	return func(s *Scanner) { s.locker = c }
}

func NewScanner(
	analyzer *SymbolAnalyzer,
	log drepo.SignalLog,
	pipe *mid.AlertPipeline,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	symbols []string,
	interval time.Duration,
	maxConc int,
	opts ...ScannerOption,
) *Scanner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxConc <= 0 {
		maxConc = 8
	}
	s := &Scanner{
		analyzer: analyzer,
		log:      log,
		pipe:     pipe,
		metrics:  metrics,
		logger:   lgr,
		symbols:  symbols,
		interval: interval,
		maxConc:  maxConc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans immediately, then on every tick until the context ends.
func (s *Scanner) Run(ctx context.Context) {
	s.logger.Info("scanner started",
		logger.Int("symbols", len(s.symbols)),
		logger.String("interval", s.interval.String()))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped")
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scanner) cycle(ctx context.Context) {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, scanLockKey, s.interval/2)
		if err != nil {
			s.logger.Warn("cycle lock unavailable, scanning anyway", logger.Error(err))
		} else if !ok {
			s.logger.Info("cycle already running elsewhere, skipping")
			return
		} else {
			defer func() {
				if err := s.locker.Unlock(ctx, scanLockKey); err != nil {
					s.logger.Warn("cycle unlock failed", logger.Error(err))
				}
			}()
		}
	}

	report := s.ScanOnce(ctx)
	s.metrics.RecordLatency("scan_cycle", report.Duration.Seconds())

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.logger.Info("scan cycle done",
		logger.Int("scanned", report.Scanned),
		logger.Int("alerted", report.Alerted),
		logger.Int("errors", len(report.Errors)),
		logger.Int64("elapsed_ms", report.Duration.Milliseconds()))
}

type symbolItem struct {
	symbol string
	rec    *models.SignalRecord
	err    error
}

// ScanOnce analyzes every configured symbol once and returns the cycle
// report. Symbols run concurrently up to the configured bound.
func (s *Scanner) ScanOnce(ctx context.Context) *ScanReport {
	start := time.Now()
	report := &ScanReport{
		At:       start.UTC(),
		Scanned:  len(s.symbols),
		Outcomes: make([]SymbolOutcome, 0, len(s.symbols)),
		Errors:   map[string]string{},
	}

	ch := make(chan symbolItem, len(s.symbols))
	sem := make(chan struct{}, s.maxConc)
	var wg sync.WaitGroup

	for _, symbol := range s.symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rec, err := s.analyzer.Analyze(ctx, symbol)
			ch <- symbolItem{symbol, rec, err}
		}(symbol)
	}
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			report.Errors[it.symbol] = it.err.Error()
			report.Outcomes = append(report.Outcomes, SymbolOutcome{Symbol: it.symbol, Error: it.err.Error()})
			s.metrics.RecordError("scan_symbol")
			s.logger.Warn("symbol scan failed",
				logger.String("symbol", it.symbol),
				logger.Error(it.err))
			continue
		}
		report.Outcomes = append(report.Outcomes, SymbolOutcome{
			Symbol: it.symbol,
			Side:   string(it.rec.Side),
			Score:  it.rec.Score.Final,
		})
		if s.emit(ctx, it.rec) {
			report.Alerted++
		}
	}

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	report.Duration = time.Since(start)
	return report
}

// emit records one finished analysis: metrics, the signal log line and,
// for a decided side, the alert pipeline. Reports whether an alert went
// out.
func (s *Scanner) emit(ctx context.Context, rec *models.SignalRecord) bool {
	s.metrics.RecordSignal(rec.Symbol, string(rec.Side))
	s.metrics.RecordLastScore(rec.Symbol, float64(rec.Score.Final))

	line := models.NewAlertLine(rec)
	if err := s.log.Append(ctx, line); err != nil {
		s.metrics.RecordError("signal_log")
		s.logger.Warn("signal log append failed",
			logger.String("symbol", rec.Symbol),
			logger.Error(err))
	}

	if rec.Side == models.SideNone {
		return false
	}
	if err := s.pipe.Deliver(ctx, line); err != nil {
		s.logger.Warn("alert delivery failed, buffered for retry",
			logger.String("symbol", rec.Symbol),
			logger.Error(err))
	}
	return true
}

// Status returns the last finished cycle report, or nil before the first
// cycle completes.
func (s *Scanner) Status() *ScanReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
