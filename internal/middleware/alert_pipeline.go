package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AltScan/internal/domain/models"
	domrepo "AltScan/internal/domain/repository"
)

// Sink is the minimal downstream interface the pipeline needs.
type Sink interface {
	Deliver(ctx context.Context, line *models.AlertLine) error
}

// AlertPipeline is a middleware between the scanner and the alert sink.
// It validates, applies a per-symbol cooldown, optionally transforms,
// and buffers when downstream is unavailable.
type AlertPipeline struct {
	sink     Sink
	metrics  domrepo.Metrics
	cooldown time.Duration
	bufSize  int
	bufCh    chan *models.AlertLine
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSent map[string]time.Time // per symbol|side last delivered time
	// simple format transform hook (optional)
	transform func(*models.AlertLine) *models.AlertLine
}

type PipelineOption func(*AlertPipeline)

// WithCooldown sets the minimum gap between alerts for one symbol and side.
func WithCooldown(d time.Duration) PipelineOption {
	return func(p *AlertPipeline) {
		if d > 0 {
			p.cooldown = d
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *AlertPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to adjust the alert before delivery.
func WithTransform(fn func(*models.AlertLine) *models.AlertLine) PipelineOption {
	return func(p *AlertPipeline) { p.transform = fn }
}

// NewAlertPipeline creates a new pipeline.
func NewAlertPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *AlertPipeline {
	p := &AlertPipeline{
		sink:     sink,
		metrics:  metrics,
		cooldown: 30 * time.Minute, // default per-symbol gap
		bufSize:  256,              // default buffer
		bufCh:    make(chan *models.AlertLine, 256),
		stopCh:   make(chan struct{}),
		lastSent: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.AlertLine, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered alerts.
func (p *AlertPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case line := <-p.bufCh:
				if line == nil {
					continue
				}
				if err := p.sink.Deliver(ctx, line); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- line:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
						p.metrics.RecordAlert("dropped")
					}
				} else {
					p.metrics.RecordAlert("delivered")
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *AlertPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Deliver validates, throttles, and forwards the alert downstream,
// buffering on errors.
func (p *AlertPipeline) Deliver(ctx context.Context, line *models.AlertLine) error {
	start := time.Now()
	if err := validateAlert(line); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		line = p.transform(line)
		if err := validateAlert(line); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(line.Symbol+"|"+line.Side, start) {
		// still cooling down; record and drop silently
		p.metrics.RecordAlert("suppressed")
		return nil
	}

	if err := p.sink.Deliver(ctx, line); err != nil {
		p.metrics.RecordError("pipeline_deliver")
		// buffer non-blocking
		select {
		case p.bufCh <- line:
			p.metrics.RecordAlert("buffered")
		default:
			p.metrics.RecordError("pipeline_buffer_full")
			p.metrics.RecordAlert("dropped")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordAlert("delivered")
	p.metrics.RecordLatency("pipeline_deliver", time.Since(start).Seconds())
	return nil
}

func validateAlert(line *models.AlertLine) error {
	if line == nil {
		return fmt.Errorf("alert nil")
	}
	if line.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if _, ok := line.Time(); !ok {
		return fmt.Errorf("timestamp invalid")
	}
	if side, ok := models.ParseSide(line.Side); !ok || side == models.SideNone {
		return fmt.Errorf("side %q not alertable", line.Side)
	}
	return nil
}

func (p *AlertPipeline) allow(key string, now time.Time) bool {
	if p.cooldown <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSent[key]
	if !last.IsZero() && now.Sub(last) < p.cooldown {
		return false
	}
	p.lastSent[key] = now
	return true
}
