package mexc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	drepo "AltScan/internal/domain/repository"
	xhttp "AltScan/pkg/http"
	"AltScan/pkg/logger"
)

func mexcLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func TestMarketSymbol(t *testing.T) {
	if got := MarketSymbol("btc_usdt"); got != "BTCUSDT" {
		t.Fatalf("unexpected symbol %q", got)
	}
	if got := MarketSymbol("ALT_USDT"); got != "ALTUSDT" {
		t.Fatalf("unexpected symbol %q", got)
	}
}

func TestIntervalSpellsHourInMinutes(t *testing.T) {
	if got := Interval(drepo.TF1h); got != "60m" {
		t.Fatalf("unexpected interval %q", got)
	}
	if got := Interval(drepo.TF5m); got != "5m" {
		t.Fatalf("unexpected interval %q", got)
	}
}

func TestParseRowStringColumns(t *testing.T) {
	row := []interface{}{
		float64(1700000000000), "100.5", "101.2", "99.8", "100.9", "1234.5",
		float64(1700000299999), "124000.1",
	}
	bar, err := parseRow(row)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bar.Open != 100.5 || bar.High != 101.2 || bar.Low != 99.8 || bar.Close != 100.9 || bar.Volume != 1234.5 {
		t.Fatalf("unexpected bar %+v", bar)
	}
	if bar.OpenTime.Unix() != 1700000000 {
		t.Fatalf("unexpected open time %v", bar.OpenTime)
	}
}

func TestParseRowShort(t *testing.T) {
	if _, err := parseRow([]interface{}{float64(1), "1", "1"}); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestFetchBarsEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "ALTUSDT" || q.Get("interval") != "5m" || q.Get("limit") != "2" {
			t.Errorf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1700000000000,"100","101","99","100.5","1000",1700000299999,"100500"],
			[1700000300000,"100.5","102","100","101.5","1100",1700000599999,"111650"]
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), mexcLogger(t))
	bars, err := c.FetchBars(context.Background(), "ALT_USDT", drepo.TF5m, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("unexpected count %d", len(bars))
	}
	if bars[0].Close != 100.5 || bars[1].Close != 101.5 {
		t.Fatalf("unexpected closes %v %v", bars[0].Close, bars[1].Close)
	}
	if !bars[0].OpenTime.Before(bars[1].OpenTime) {
		t.Fatalf("bars must be ascending")
	}
}

func TestFetchBarsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, xhttp.NewClient(), mexcLogger(t))
	if _, err := c.FetchBars(context.Background(), "ALT_USDT", drepo.TF5m, 10); err == nil {
		t.Fatalf("expected error for empty kline response")
	}
}

func TestFetchBarsFromAlignsStart(t *testing.T) {
	var gotStart string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("startTime")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[[1700000100000,"1","1","1","1","1",1700000399999,"1"]]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, xhttp.NewClient(), mexcLogger(t))
	start := time.Date(2023, 11, 14, 22, 13, 42, 0, time.UTC)
	if _, err := c.FetchBarsFrom(context.Background(), "ALT_USDT", drepo.TF5m, start, 48); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	aligned := time.Date(2023, 11, 14, 22, 10, 0, 0, time.UTC)
	if gotStart != "1699999800000" {
		t.Fatalf("expected aligned start %d, got %s", aligned.UnixMilli(), gotStart)
	}
}
