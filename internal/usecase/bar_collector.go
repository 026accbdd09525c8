package usecase

import (
	"context"
	"sync"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	"AltScan/pkg/logger"
)

// BarCollector consumes the live kline stream and keeps the most recent
// bar per symbol. The exchange pushes in-progress updates only; a bar is
// considered closed once an update for a later window arrives.
type BarCollector struct {
	stream  drepo.MarketStream
	metrics drepo.Metrics
	logger  *logger.Logger

	mu   sync.RWMutex
	live map[string]models.Bar // symbol|tf -> in-progress bar
}

// NewBarCollector creates a new BarCollector instance.
func NewBarCollector(stream drepo.MarketStream, metrics drepo.Metrics, lgr *logger.Logger) *BarCollector {
	return &BarCollector{
		stream:  stream,
		metrics: metrics,
		logger:  lgr,
		live:    make(map[string]models.Bar),
	}
}

// IsConnected returns true if the market stream is connected.
func (c *BarCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *BarCollector) consume(ctx context.Context, evCh <-chan *models.BarEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				rerr := c.stream.Reconnect(ctx)
				c.logger.Warn("stream reconnect",
					logger.Error(err),
					logger.Bool("recovered", rerr == nil))
			}
		case ev := <-evCh:
			if ev == nil {
				continue
			}
			c.apply(ev)
		}
	}
}

func (c *BarCollector) apply(ev *models.BarEvent) {
	key := ev.Symbol + "|" + ev.Timeframe

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, seen := c.live[key]
	if seen && ev.Bar.OpenTime.After(prev.OpenTime) {
		c.logger.Debug("bar closed",
			logger.String("symbol", ev.Symbol),
			logger.String("tf", ev.Timeframe),
			logger.Float64("close", prev.Close))
	}
	c.live[key] = ev.Bar
}

// Latest returns the freshest streamed bar for a symbol and timeframe.
func (c *BarCollector) Latest(symbol, tf string) (models.Bar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bar, ok := c.live[symbol+"|"+tf]
	return bar, ok
}

// Tracked reports how many symbol/timeframe pairs have live bars.
func (c *BarCollector) Tracked() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.live)
}

// Shutdown closes the stream.
func (c *BarCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
