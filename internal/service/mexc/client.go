package mexc

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	"AltScan/internal/service/ratelimit"
	"AltScan/pkg/cache"
	xhttp "AltScan/pkg/http"
	"AltScan/pkg/logger"
	"AltScan/pkg/util"
)

const klinesPath = "/api/v3/klines"

// rateKey shares one token bucket across every REST call, matching the
// exchange's per-IP limit.
const rateKey = "mexc:rest"

// Client implements a BarProvider backed by the MEXC spot REST API.
type Client struct {
	baseURL string
	http    *xhttp.Client
	logger  *logger.Logger

	limiter      *ratelimit.Limiter
	rateCapacity float64
	ratePerSec   float64

	cache    cache.Service
	cacheTTL time.Duration
}

// ClientOption configures the MEXC client.
type ClientOption func(*Client)

// WithLimiter paces REST calls through a shared token bucket.
func WithLimiter(l *ratelimit.Limiter, capacity, refillPerSec float64) ClientOption {
	return func(c *Client) {
		c.limiter = l
		c.rateCapacity = capacity
		c.ratePerSec = refillPerSec
	}
}

// WithCache snapshots recent kline responses so one scan cycle does not
// refetch the shared reference series.
func WithCache(svc cache.Service, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = svc
		c.cacheTTL = ttl
	}
}

// NewClient creates a MEXC kline client.
func NewClient(baseURL string, httpClient *xhttp.Client, lgr *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  lgr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ drepo.BarProvider = (*Client)(nil)

// FetchBars returns the most recent klines for a symbol, oldest first.
func (c *Client) FetchBars(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, error) {
	key := cache.GenerateKeyWithParams("klines", symbol, string(tf), limit)
	if c.cache != nil {
		var bars []models.Bar
		if err := c.cache.Get(ctx, key, &bars); err == nil && len(bars) > 0 {
			return bars, nil
		}
	}

	bars, err := c.fetch(ctx, symbol, tf, limit, time.Time{})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, bars, c.cacheTTL); err != nil {
			c.logger.Warn("kline cache set failed", logger.String("key", key), logger.Error(err))
		}
	}
	return bars, nil
}

// FetchBarsFrom returns up to limit klines starting at the bar boundary
// at or after start.
func (c *Client) FetchBarsFrom(ctx context.Context, symbol string, tf drepo.Timeframe, start time.Time, limit int) ([]models.Bar, error) {
	return c.fetch(ctx, symbol, tf, limit, util.AlignToTF(start, string(tf)))
}

func (c *Client) fetch(ctx context.Context, symbol string, tf drepo.Timeframe, limit int, start time.Time) ([]models.Bar, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rateKey, c.rateCapacity, c.ratePerSec); err != nil {
			return nil, fmt.Errorf("mexc rate wait: %w", err)
		}
	}

	params := map[string][]string{
		"symbol":   {MarketSymbol(symbol)},
		"interval": {Interval(tf)},
		"limit":    {strconv.Itoa(limit)},
	}
	if !start.IsZero() {
		params["startTime"] = []string{strconv.FormatInt(start.UnixMilli(), 10)}
	}

	var rows [][]interface{}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + klinesPath,
		QueryParams: params,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("mexc klines %s %s: %w", symbol, tf, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no kline data returned for %s %s", symbol, tf)
	}

	bars := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("mexc kline row %d: %w", i, err)
		}
		bars = append(bars, bar)
	}

	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].OpenTime.Before(bars[j].OpenTime) }) {
		sort.Slice(bars, func(i, j int) bool { return bars[i].OpenTime.Before(bars[j].OpenTime) })
	}
	return bars, nil
}

// parseRow decodes one kline row: open time in ms, then open/high/low/
// close/volume as strings, then close time. Longer rows keep their extra
// columns unread.
func parseRow(row []interface{}) (models.Bar, error) {
	var bar models.Bar
	if len(row) < 7 {
		return bar, fmt.Errorf("short row: %d columns", len(row))
	}

	openMs, err := toFloat(row[0])
	if err != nil {
		return bar, fmt.Errorf("open time: %w", err)
	}
	closeMs, err := toFloat(row[6])
	if err != nil {
		return bar, fmt.Errorf("close time: %w", err)
	}
	bar.OpenTime = time.UnixMilli(int64(openMs)).UTC()
	bar.CloseTime = time.UnixMilli(int64(closeMs)).UTC()

	for i, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume} {
		v, err := toFloat(row[i+1])
		if err != nil {
			return bar, fmt.Errorf("column %d: %w", i+1, err)
		}
		*dst = v
	}
	return bar, nil
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// MarketSymbol maps the scanner's SYMBOL_QUOTE form to the exchange's
// concatenated upper-case form, e.g. alt_usdt -> ALTUSDT.
func MarketSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "_", ""))
}

// Interval maps a timeframe to the exchange interval token. MEXC spells
// the hour interval in minutes.
func Interval(tf drepo.Timeframe) string {
	switch tf {
	case drepo.TF1h:
		return "60m"
	default:
		return string(tf)
	}
}
