package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
scan:
  symbols: ["ALT_USDT"]
weights:
  ema_align: 2
  macd: 1
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Scan.LookbackWindow != 20 {
		t.Fatalf("unexpected lookback %d", c.Scan.LookbackWindow)
	}
	if c.Scan.Interval != 5*time.Minute {
		t.Fatalf("unexpected interval %v", c.Scan.Interval)
	}
	if c.Timeframes.Primary != "5m" || c.Timeframes.Confirm != "15m" {
		t.Fatalf("unexpected timeframes %+v", c.Timeframes)
	}
	if len(c.Timeframes.Swing) != 2 {
		t.Fatalf("unexpected swing %v", c.Timeframes.Swing)
	}
	if len(c.Levels.TPAtrMults) != 2 || c.Levels.TPAtrMults[1] != 2.0 {
		t.Fatalf("unexpected tp mults %v", c.Levels.TPAtrMults)
	}
	if c.Weights.EmaAlign != 2 || c.Weights.Retest != 0 {
		t.Fatalf("unexpected weights %+v", c.Weights)
	}
	if c.Weights.EmaDown != nil {
		t.Fatalf("bearish override should stay nil when absent")
	}
	if c.Context.Symbol != "BTC_USDT" || c.Context.BearAdj != -1 {
		t.Fatalf("unexpected context %+v", c.Context)
	}
	if c.Alerts.Mode != "direct" || c.Alerts.QueueSize != 1000 {
		t.Fatalf("unexpected alerts %+v", c.Alerts)
	}
}

func TestLoadRejectsEmptySymbols(t *testing.T) {
	path := writeConfig(t, `
environment: test
scan:
  symbols: []
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty symbols")
	}
}

func TestLoadRejectsUnorderedLadder(t *testing.T) {
	path := writeConfig(t, `
environment: test
scan:
  symbols: ["ALT_USDT"]
levels:
  tp_atr_mults: [2.0, 1.0]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unordered ladder")
	}
}

func TestLoadRejectsQueueModeWithoutRedis(t *testing.T) {
	path := writeConfig(t, `
environment: test
scan:
  symbols: ["ALT_USDT"]
alerts:
  mode: queue
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for queue mode without redis")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: test
scan:
  symbols: ["ALT_USDT"]
`)
	t.Setenv("SYMBOLS", "AAA_USDT,BBB_USDT")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Scan.Symbols) != 2 || c.Scan.Symbols[0] != "AAA_USDT" {
		t.Fatalf("unexpected symbols %v", c.Scan.Symbols)
	}
	if c.Telegram.BotToken != "tok" {
		t.Fatalf("unexpected token %q", c.Telegram.BotToken)
	}
}
