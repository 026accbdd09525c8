package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "AltScan/internal/domain/repository"
	"AltScan/internal/middleware"
	"AltScan/internal/usecase"
	"AltScan/pkg/cache"
	"AltScan/pkg/config"
	xhttp "AltScan/pkg/http"
	applogger "AltScan/pkg/logger"
	"AltScan/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	scanner    *usecase.Scanner
	pipeline   *middleware.AlertPipeline
	collector  *usecase.BarCollector
	consumer   *queue.RedisQueue
	publisher  *queue.RedisQueue
	redis      *cache.RedisCache
	signalLog  drepo.SignalLog
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with its required dependencies.
// Optional infrastructure (stream collector, redis, queues) is attached
// through the setters below.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	scanner *usecase.Scanner,
	pipeline *middleware.AlertPipeline,
	signalLog drepo.SignalLog,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    lgr,
		scanner:   scanner,
		pipeline:  pipeline,
		signalLog: signalLog,
		handler:   handler,
	}
}

// SetCollector attaches the websocket bar collector.
func (a *App) SetCollector(c *usecase.BarCollector) { a.collector = c }

// SetQueues attaches the alert consumer and the shared publisher.
func (a *App) SetQueues(consumer, publisher *queue.RedisQueue) {
	a.consumer = consumer
	a.publisher = publisher
}

// SetCache attaches the redis cache so shutdown can close it.
func (a *App) SetCache(rc *cache.RedisCache) { a.redis = rc }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Aggregate error logs through the queue when redis is available.
	if a.publisher != nil {
		a.logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregate",
			Publisher:      a.publisher,
		})
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.pipeline.Start(ctx)

	// Start scan loop
	go a.scanner.Run(ctx)
	a.logger.Info("scanner started",
		applogger.Strings("symbols", a.cfg.Scan.Symbols),
		applogger.String("interval", a.cfg.Scan.Interval.String()))

	// Start websocket collector if configured. Scans read candles over
	// REST, so a dead stream only degrades the status endpoint.
	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Warn("market stream unavailable", applogger.Error(err))
		} else {
			a.logger.Info("market stream collector started")
		}
	}

	// Start alert consumer if configured
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("start alert consumer: %w", err)
		}
		a.logger.Info("alert consumer started",
			applogger.Int("workers", a.cfg.Alerts.QueueWorkers))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop delivering alerts first so nothing new reaches the queue.
	a.pipeline.Stop()

	if a.collector != nil {
		if err := a.collector.Shutdown(stopCtx); err != nil {
			a.logger.Warn("stream collector stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.logger.Warn("alert consumer stop error", applogger.Error(err))
		}
	}

	// Flush aggregated logs before the publisher goes away.
	a.logger.RemoveCollector()

	if a.publisher != nil {
		if err := a.publisher.Stop(stopCtx); err != nil {
			a.logger.Warn("queue publisher stop error", applogger.Error(err))
		}
	}

	if err := a.httpServer.Stop(stopCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.signalLog.Close(); err != nil {
		a.logger.Warn("signal log close error", applogger.Error(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
