package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AltScan/internal/domain/models"
)

type fakeSink struct {
	mu    sync.Mutex
	got   []*models.AlertLine
	fail  int // deliveries to fail before succeeding
	calls int
}

func (s *fakeSink) Deliver(_ context.Context, line *models.AlertLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail > 0 {
		s.fail--
		return errors.New("downstream unavailable")
	}
	s.got = append(s.got, line)
	return nil
}

func (s *fakeSink) delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type fakeMetrics struct {
	mu     sync.Mutex
	alerts map[string]int
	errs   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{alerts: make(map[string]int), errs: make(map[string]int)}
}

func (m *fakeMetrics) RecordSignal(string, string) {}
func (m *fakeMetrics) RecordAlert(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[outcome]++
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}
func (m *fakeMetrics) RecordLastScore(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}

func (m *fakeMetrics) alertCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts[outcome]
}

func pipelineAlert(symbol, side string) *models.AlertLine {
	return &models.AlertLine{
		ID:        symbol + "|" + side,
		Timestamp: "2026-08-20T10:00:00Z",
		Symbol:    symbol,
		Side:      side,
		TF:        "5m",
	}
}

func TestPipelineDeliversValidAlert(t *testing.T) {
	sink := &fakeSink{}
	m := newFakeMetrics()
	p := NewAlertPipeline(sink, m)

	if err := p.Deliver(context.Background(), pipelineAlert("BTC_USDT", "BUY")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if sink.delivered() != 1 {
		t.Fatalf("sink received %d alerts, want 1", sink.delivered())
	}
	if m.alertCount("delivered") != 1 {
		t.Errorf("delivered metric = %d, want 1", m.alertCount("delivered"))
	}
}

func TestPipelineRejectsInvalidAlerts(t *testing.T) {
	sink := &fakeSink{}
	p := NewAlertPipeline(sink, newFakeMetrics())
	ctx := context.Background()

	cases := []*models.AlertLine{
		nil,
		pipelineAlert("", "BUY"),
		pipelineAlert("BTC_USDT", "NONE"),
		pipelineAlert("BTC_USDT", "long"),
		{ID: "x", Timestamp: "not a time", Symbol: "BTC_USDT", Side: "BUY"},
	}
	for i, line := range cases {
		if err := p.Deliver(ctx, line); err == nil {
			t.Errorf("case %d: Deliver() accepted invalid alert", i)
		}
	}
	if sink.calls != 0 {
		t.Errorf("sink called %d times for invalid alerts, want 0", sink.calls)
	}
}

func TestPipelineCooldownSuppressesRepeats(t *testing.T) {
	sink := &fakeSink{}
	m := newFakeMetrics()
	p := NewAlertPipeline(sink, m, WithCooldown(time.Hour))
	ctx := context.Background()

	if err := p.Deliver(ctx, pipelineAlert("BTC_USDT", "BUY")); err != nil {
		t.Fatalf("first Deliver() error = %v", err)
	}
	if err := p.Deliver(ctx, pipelineAlert("BTC_USDT", "BUY")); err != nil {
		t.Fatalf("cooled-down Deliver() error = %v", err)
	}
	// opposite side has its own cooldown key
	if err := p.Deliver(ctx, pipelineAlert("BTC_USDT", "SELL")); err != nil {
		t.Fatalf("other side Deliver() error = %v", err)
	}

	if sink.delivered() != 2 {
		t.Errorf("sink received %d alerts, want BUY once and SELL once", sink.delivered())
	}
	if m.alertCount("suppressed") != 1 {
		t.Errorf("suppressed metric = %d, want 1", m.alertCount("suppressed"))
	}
}

func TestPipelineBuffersAndFlushesOnFailure(t *testing.T) {
	sink := &fakeSink{fail: 1}
	m := newFakeMetrics()
	p := NewAlertPipeline(sink, m, WithBufferSize(4))
	ctx := context.Background()

	if err := p.Deliver(ctx, pipelineAlert("BTC_USDT", "BUY")); err == nil {
		t.Fatal("Deliver() with failing sink returned nil error")
	}
	if m.alertCount("buffered") != 1 {
		t.Fatalf("buffered metric = %d, want 1", m.alertCount("buffered"))
	}

	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for sink.delivered() == 0 {
		select {
		case <-deadline:
			t.Fatal("buffered alert never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineTransformRuns(t *testing.T) {
	sink := &fakeSink{}
	p := NewAlertPipeline(sink, newFakeMetrics(), WithTransform(func(line *models.AlertLine) *models.AlertLine {
		line.Exchange = "MEXC"
		return line
	}))

	if err := p.Deliver(context.Background(), pipelineAlert("BTC_USDT", "BUY")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if sink.got[0].Exchange != "MEXC" {
		t.Errorf("Exchange = %q, want transform applied", sink.got[0].Exchange)
	}
}
