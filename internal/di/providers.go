package di

import (
	"context"
	"fmt"
	"time"

	"AltScan/internal/domain/repository"
	"AltScan/internal/handler/api"
	mid "AltScan/internal/middleware"
	internalrepo "AltScan/internal/repository"
	"AltScan/internal/service/mexc"
	"AltScan/internal/service/ratelimit"
	"AltScan/internal/service/telegram"
	"AltScan/internal/services/features"
	"AltScan/internal/services/scoring"
	"AltScan/internal/usecase"
	"AltScan/pkg/cache"
	"AltScan/pkg/config"
	xhttp "AltScan/pkg/http"
	applogger "AltScan/pkg/logger"
	"AltScan/pkg/metrics"
	"AltScan/pkg/queue"
	"AltScan/pkg/server"
)

// Shared token bucket for the exchange REST API. The scanner fans out
// across symbols, so the limit lives here rather than per client.
const (
	mexcRateCapacity = 10
	mexcRatePerSec   = 10
)

// Enough for every symbol and timeframe pair a cycle touches.
const klineCacheSize = 256

// QueueSet groups the optional redis queue endpoints so one provider can
// hand both to the app.
type QueueSet struct {
	Consumer  *queue.RedisQueue
	Publisher *queue.RedisQueue
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lgr, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return lgr, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the redis client when enabled, nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideLimiter creates the shared REST rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideBarProvider creates the MEXC kline client. Scans hit the shared
// reference series (context symbol, confirm timeframes) once per symbol,
// so klines always go through a cache: in-process only, or layered over
// redis when that is available.
func ProvideBarProvider(
	cfg *config.Config,
	lgr *applogger.Logger,
	limiter *ratelimit.Limiter,
	rc *cache.RedisCache,
) repository.BarProvider {
	var klines cache.Service
	if rc != nil {
		klines = cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(klineCacheSize),
			cache.WithLayeredMemoryTTL(cfg.Redis.CacheTTL),
		)
	} else {
		klines = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(klineCacheSize),
			cache.WithMemoryCleanup(time.Minute),
		)
	}

	httpClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Mexc.Timeout))
	return mexc.NewClient(cfg.Mexc.BaseURL, httpClient, lgr,
		mexc.WithLimiter(limiter, mexcRateCapacity, mexcRatePerSec),
		mexc.WithCache(klines, cfg.Redis.CacheTTL),
	)
}

// ProvideMarketStream creates the websocket kline stream, nil when the
// stream is disabled.
func ProvideMarketStream(cfg *config.Config, lgr *applogger.Logger) repository.MarketStream {
	if !cfg.Mexc.StreamEnabled {
		return nil
	}
	return mexc.NewStream(
		cfg.Mexc.WSURL,
		cfg.Scan.Symbols,
		repository.NormalizeTimeframe(cfg.Timeframes.Primary),
		cfg.Mexc.ReconnectDelay,
		cfg.Mexc.PingInterval,
		lgr,
	)
}

// ProvideNotifier creates the Telegram notifier.
func ProvideNotifier(cfg *config.Config, lgr *applogger.Logger, m repository.Metrics) repository.Notifier {
	httpClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Telegram.Timeout))
	return telegram.NewNotifier("", cfg.Telegram.BotToken, cfg.Telegram.ChatID, httpClient, lgr, m)
}

// ProvideQueueSet creates the redis queue endpoints. The publisher exists
// whenever redis does so aggregated logs have somewhere to go; the
// consumer only runs in queue alert mode.
func ProvideQueueSet(
	cfg *config.Config,
	lgr *applogger.Logger,
	rc *cache.RedisCache,
	notifier repository.Notifier,
	m repository.Metrics,
) *QueueSet {
	qs := &QueueSet{}
	if rc == nil {
		return qs
	}

	qs.Publisher = queue.NewRedisPublisher(lgr, rc.Client(),
		queue.WithQueueSize(cfg.Alerts.QueueSize))

	if cfg.Alerts.Mode == "queue" {
		qs.Consumer = queue.NewRedisConsumer(lgr,
			&queue.QueueConfig{
				Workers:    cfg.Alerts.QueueWorkers,
				RetryLimit: cfg.Alerts.RetryLimit,
				RetryDelay: cfg.Alerts.RetryDelay,
			},
			rc.Client(),
			[]queue.Job{usecase.NewNotifyJob(notifier, m)},
		)
	}
	return qs
}

// ProvideScorer creates the weighted scorer.
func ProvideScorer(cfg *config.Config) *scoring.Scorer {
	return scoring.NewScorer(cfg.Weights, cfg.MTFWeights)
}

// ProvideMTFConfirmer creates the higher timeframe confirmer.
func ProvideMTFConfirmer(provider repository.BarProvider, lgr *applogger.Logger, cfg *config.Config) *features.MTFConfirmer {
	return features.NewMTFConfirmer(provider, lgr, cfg.Scan.KlineLimit, cfg.Scan.EmaFast, cfg.Scan.EmaSlow)
}

// ProvideContextAdjuster creates the broad-market context adjuster.
func ProvideContextAdjuster(provider repository.BarProvider, lgr *applogger.Logger, cfg *config.Config) *features.ContextAdjuster {
	return features.NewContextAdjuster(provider, lgr, features.ContextConfig{
		Symbol:    cfg.Context.Symbol,
		Timeframe: repository.NormalizeTimeframe(cfg.Context.Timeframe),
		EmaFast:   cfg.Context.EmaFast,
		EmaSlow:   cfg.Context.EmaSlow,
		BullAdj:   cfg.Context.BullAdj,
		BearAdj:   cfg.Context.BearAdj,
		Limit:     cfg.Scan.KlineLimit,
	})
}

// ProvideAnalyzer creates the per-symbol analyzer. When the websocket
// collector runs, its freshest bar overlays each fetched series.
func ProvideAnalyzer(
	provider repository.BarProvider,
	mtf *features.MTFConfirmer,
	market *features.ContextAdjuster,
	scorer *scoring.Scorer,
	cfg *config.Config,
	collector *usecase.BarCollector,
) *usecase.SymbolAnalyzer {
	var opts []usecase.AnalyzerOption
	if collector != nil {
		opts = append(opts, usecase.WithLiveBars(collector))
	}
	return usecase.NewSymbolAnalyzer(provider, mtf, market, scorer, cfg, opts...)
}

// ProvideSignalLog creates the append-only signal log.
func ProvideSignalLog(cfg *config.Config, lgr *applogger.Logger) (repository.SignalLog, error) {
	return internalrepo.NewFileSignalLog(cfg.Labeling.DataDir, lgr)
}

// ProvideAlertPipeline creates the alert delivery pipeline with its
// dispatcher attached.
func ProvideAlertPipeline(
	cfg *config.Config,
	notifier repository.Notifier,
	qs *QueueSet,
	m repository.Metrics,
) *mid.AlertPipeline {
	var pub queue.QueueService
	if qs.Publisher != nil {
		pub = qs.Publisher
	}
	dispatcher := usecase.NewAlertDispatcher(notifier, pub, m, cfg.Alerts.Mode)
	return mid.NewAlertPipeline(dispatcher, m,
		mid.WithCooldown(cfg.Alerts.Cooldown),
	)
}

// ProvideScanner creates the scan loop.
func ProvideScanner(
	analyzer *usecase.SymbolAnalyzer,
	signalLog repository.SignalLog,
	pipe *mid.AlertPipeline,
	m repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
	rc *cache.RedisCache,
) *usecase.Scanner {
	var opts []usecase.ScannerOption
	if rc != nil {
		opts = append(opts, usecase.WithCycleLock(rc))
	}
	return usecase.NewScanner(
		analyzer,
		signalLog,
		pipe,
		m,
		lgr,
		cfg.Scan.Symbols,
		cfg.Scan.Interval,
		cfg.Scan.MaxConcurrency,
		opts...,
	)
}

// ProvideBarCollector creates the websocket collector, nil when no
// stream is configured.
func ProvideBarCollector(stream repository.MarketStream, m repository.Metrics, lgr *applogger.Logger) *usecase.BarCollector {
	if stream == nil {
		return nil
	}
	return usecase.NewBarCollector(stream, m, lgr)
}

// ProvideOpsHandler creates the HTTP handler for the ops endpoints.
func ProvideOpsHandler(
	lgr *applogger.Logger,
	signalLog repository.SignalLog,
	scanner *usecase.Scanner,
	collector *usecase.BarCollector,
	rc *cache.RedisCache,
) xhttp.Handler {
	h := api.NewOpsEchoHandler(lgr, signalLog, scanner)
	if collector != nil {
		h.SetCollector(collector)
	}
	if rc != nil {
		h.AddProbe("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		})
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	scanner *usecase.Scanner,
	pipeline *mid.AlertPipeline,
	signalLog repository.SignalLog,
	handler xhttp.Handler,
	collector *usecase.BarCollector,
	qs *QueueSet,
	rc *cache.RedisCache,
) *server.App {
	app := server.New(cfg, lgr, scanner, pipeline, signalLog, handler)
	if collector != nil {
		app.SetCollector(collector)
	}
	app.SetQueues(qs.Consumer, qs.Publisher)
	if rc != nil {
		app.SetCache(rc)
	}
	return app
}
