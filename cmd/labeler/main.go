package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"AltScan/internal/domain/models"
	internalrepo "AltScan/internal/repository"
	"AltScan/internal/service/mexc"
	"AltScan/internal/service/ratelimit"
	"AltScan/internal/services/labeling"
	"AltScan/pkg/config"
	xhttp "AltScan/pkg/http"
	applogger "AltScan/pkg/logger"
	"AltScan/pkg/metrics"
	"AltScan/pkg/util"
)

// Labels logged alerts against the bars that followed them and writes
// the outcome report. Runs standalone so a backtest never touches the
// live scanner.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	dataDir := flag.String("data", "", "alert log directory (default from config)")
	outDir := flag.String("out", "", "report directory (default from config)")
	horizon := flag.Int("horizon", 0, "forward bars per alert (default from config)")
	fromArg := flag.String("from", "", "only label alerts at or after this time (RFC3339 or unix seconds)")
	toArg := flag.String("to", "", "only label alerts before this time (RFC3339 or unix seconds)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *dataDir == "" {
		*dataDir = cfg.Labeling.DataDir
	}
	if *outDir == "" {
		*outDir = cfg.Labeling.OutDir
	}
	if *horizon <= 0 {
		*horizon = cfg.Labeling.LookaheadBars
	}

	lgr, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	alerts, skipped, err := internalrepo.ReadAlertDir(*dataDir)
	if err != nil {
		log.Fatalf("read alert logs: %v", err)
	}
	if skipped > 0 {
		lgr.Warn("skipped malformed alert lines", applogger.Int("count", skipped))
	}

	if *fromArg != "" || *toArg != "" {
		from := util.ParseTimeDefault(*fromArg, time.Time{})
		to := util.ParseTimeDefault(*toArg, time.Time{})
		before := len(alerts)
		alerts = filterWindow(alerts, from, to)
		lgr.Info("applied time window",
			applogger.Int("kept", len(alerts)),
			applogger.Int("dropped", before-len(alerts)))
	}

	if len(alerts) == 0 {
		lgr.Info("no alerts to label", applogger.String("dir", *dataDir))
		return
	}

	rec := metrics.New()
	limiter := ratelimit.New()
	httpClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Mexc.Timeout))
	provider := mexc.NewClient(cfg.Mexc.BaseURL, httpClient, lgr,
		mexc.WithLimiter(limiter, 10, 10))

	runner := labeling.NewRunner(provider, lgr, rec, *horizon)

	lgr.Info("labeling alerts",
		applogger.Int("alerts", len(alerts)),
		applogger.Int("horizon", *horizon))

	rows := runner.LabelAlerts(context.Background(), alerts)

	csvPath := filepath.Join(*outDir, "alerts_analysis.csv")
	if err := internalrepo.WriteLabelCSV(csvPath, rows); err != nil {
		log.Fatalf("write csv report: %v", err)
	}
	jsonPath := filepath.Join(*outDir, "alerts_analysis.json")
	if err := internalrepo.WriteLabelJSONL(jsonPath, rows); err != nil {
		log.Fatalf("write json report: %v", err)
	}

	s := labeling.Summarize(rows)
	lgr.Info("labeling complete",
		applogger.Int("total", s.Total),
		applogger.Int("labeled", s.Labeled),
		applogger.Int("errors", s.Errors),
		applogger.Int("hit_tp", s.HitTP),
		applogger.Int("hit_sl", s.HitSL),
		applogger.Int("no_event", s.NoEvent),
		applogger.String("csv", csvPath),
		applogger.String("json", jsonPath))
}

// filterWindow keeps alerts whose timestamp falls in [from, to). A zero
// bound leaves that side open. Records without a parseable timestamp are
// dropped since they cannot be placed in the window.
func filterWindow(alerts []models.AlertLine, from, to time.Time) []models.AlertLine {
	out := alerts[:0]
	for _, a := range alerts {
		ts, ok := a.Time()
		if !ok {
			continue
		}
		if !from.IsZero() && ts.Before(from) {
			continue
		}
		if !to.IsZero() && !ts.Before(to) {
			continue
		}
		out = append(out, a)
	}
	return out
}

