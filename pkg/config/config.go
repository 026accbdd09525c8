package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"AltScan/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Weights maps feature flags to their score contribution. A key left out
// of the file contributes nothing. Pointer fields are side or pattern
// specific overrides that fall back to their bullish counterpart when nil.
type Weights struct {
	EmaAlign int `yaml:"ema_align"`
	Macd     int `yaml:"macd"`
	VolSpike int `yaml:"vol_spike"`
	Breakout int `yaml:"breakout"`
	Retest   int `yaml:"retest"`

	BounceSupport  *int `yaml:"bounce_support"`
	SupportRetest  *int `yaml:"support_retest"`
	FallResistance *int `yaml:"fall_resistance"`

	EmaDown     *int `yaml:"ema_down"`
	MacdNeg     *int `yaml:"macd_neg"`
	Breakdown   *int `yaml:"breakdown"`
	RetestShort *int `yaml:"retest_short"`
}

type MTFWeights struct {
	Ema   int `yaml:"ema"`
	Swing int `yaml:"swing"`
}

type Config struct {
	Environment string `yaml:"environment" default:"dev"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Scan struct {
		Interval       time.Duration `yaml:"interval" default:"5m"`
		Symbols        []string      `yaml:"symbols"`
		LookbackWindow int           `yaml:"lookback_window" default:"20"`
		MinMovePct     float64       `yaml:"min_move_pct" default:"0.002"`
		VolSpikeMult   float64       `yaml:"vol_spike_mult" default:"1.5"`
		EmaFast        int           `yaml:"ema_fast" default:"20"`
		EmaSlow        int           `yaml:"ema_slow" default:"50"`
		KlineLimit     int           `yaml:"kline_limit" default:"120"`
		AlertThreshold int           `yaml:"alert_threshold" default:"4"`
		MaxConcurrency int           `yaml:"max_concurrency" default:"8"`
	} `yaml:"scan"`
	Timeframes struct {
		Primary string   `yaml:"primary" default:"5m"`
		Confirm string   `yaml:"confirm" default:"15m"`
		Swing   []string `yaml:"swing"`
	} `yaml:"timeframes"`
	Weights    Weights    `yaml:"weights"`
	MTFWeights MTFWeights `yaml:"mtf_weights"`
	Levels     struct {
		SLAtrMult  float64   `yaml:"sl_atr_mult" default:"1.0"`
		TPAtrMults []float64 `yaml:"tp_atr_mults"`
	} `yaml:"levels"`
	Context struct {
		Symbol    string `yaml:"symbol" default:"BTC_USDT"`
		Timeframe string `yaml:"timeframe" default:"15m"`
		EmaFast   int    `yaml:"ema_fast" default:"20"`
		EmaSlow   int    `yaml:"ema_slow" default:"50"`
		BullAdj   int    `yaml:"bull_adj" default:"1"`
		BearAdj   int    `yaml:"bear_adj" default:"-1"`
	} `yaml:"context"`
	Labeling struct {
		LookaheadBars int    `yaml:"lookahead_bars" default:"48"`
		DataDir       string `yaml:"data_dir" default:"data"`
		OutDir        string `yaml:"out_dir" default:"analysis"`
	} `yaml:"labeling"`
	Mexc struct {
		BaseURL        string        `yaml:"base_url" default:"https://api.mexc.com"`
		WSURL          string        `yaml:"ws_url" default:"wss://wbs.mexc.com/ws"`
		Timeout        time.Duration `yaml:"timeout" default:"10s"`
		StreamEnabled  bool          `yaml:"stream_enabled"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"mexc"`
	Telegram struct {
		BotToken string        `yaml:"bot_token"`
		ChatID   string        `yaml:"chat_id"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"telegram"`
	Alerts struct {
		Mode         string        `yaml:"mode" default:"direct"`
		Cooldown     time.Duration `yaml:"cooldown" default:"30m"`
		QueueWorkers int           `yaml:"queue_workers" default:"2"`
		QueueSize    int           `yaml:"queue_size" default:"1000"`
		RetryLimit   int           `yaml:"retry_limit" default:"3"`
		RetryDelay   time.Duration `yaml:"retry_delay" default:"10s"`
	} `yaml:"alerts"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"altscan"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"60s"`
	} `yaml:"redis"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Fill gaps the file left; file values win.
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}
	if len(c.Timeframes.Swing) == 0 {
		c.Timeframes.Swing = []string{"1h", "4h"}
	}
	if len(c.Levels.TPAtrMults) == 0 {
		c.Levels.TPAtrMults = []float64{1.0, 2.0}
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. A .env file next to the binary is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scan.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("ALERTS_MODE"); v != "" {
		c.Alerts.Mode = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Scan.Symbols) == 0 {
		return fmt.Errorf("scan.symbols cannot be empty")
	}
	if c.Scan.LookbackWindow < 1 {
		return fmt.Errorf("scan.lookback_window must be at least 1")
	}
	if c.Scan.EmaFast >= c.Scan.EmaSlow {
		return fmt.Errorf("scan.ema_fast must be below scan.ema_slow")
	}
	if !validTF(c.Timeframes.Primary) {
		return fmt.Errorf("timeframes.primary '%s' is not supported", c.Timeframes.Primary)
	}
	if !validTF(c.Timeframes.Confirm) {
		return fmt.Errorf("timeframes.confirm '%s' is not supported", c.Timeframes.Confirm)
	}
	for _, tf := range c.Timeframes.Swing {
		if !validTF(tf) {
			return fmt.Errorf("timeframes.swing '%s' is not supported", tf)
		}
	}
	if c.Levels.SLAtrMult <= 0 {
		return fmt.Errorf("levels.sl_atr_mult must be positive")
	}
	for i, m := range c.Levels.TPAtrMults {
		if m <= 0 {
			return fmt.Errorf("levels.tp_atr_mults must be positive")
		}
		if i > 0 && m <= c.Levels.TPAtrMults[i-1] {
			return fmt.Errorf("levels.tp_atr_mults must be strictly ascending")
		}
	}
	if c.Alerts.Mode != "direct" && c.Alerts.Mode != "queue" {
		return fmt.Errorf("alerts.mode must be 'direct' or 'queue', got '%s'", c.Alerts.Mode)
	}
	if c.Alerts.Mode == "queue" && !c.Redis.Enabled {
		return fmt.Errorf("alerts.mode 'queue' requires redis.enabled")
	}
	if c.Labeling.LookaheadBars < 1 {
		return fmt.Errorf("labeling.lookahead_bars must be at least 1")
	}
	return nil
}

func validTF(tf string) bool {
	switch tf {
	case "5m", "15m", "1h", "4h", "1d":
		return true
	default:
		return false
	}
}
