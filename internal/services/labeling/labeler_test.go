package labeling

import (
	"testing"

	"AltScan/internal/domain/models"
)

func floatPtr(v float64) *float64 { return &v }

func buyAlert() models.AlertLine {
	return models.AlertLine{
		ID:        "ALT_USDT|BUY|1700000000",
		Timestamp: "2023-11-14T22:13:20Z",
		Symbol:    "ALT_USDT",
		Side:      "BUY",
		TF:        "5m",
		Entry:     floatPtr(100),
		SL:        floatPtr(90),
		TPs:       []float64{110, 120},
	}
}

func bar(high, low float64) models.Bar {
	return models.Bar{Open: (high + low) / 2, High: high, Low: low, Close: (high + low) / 2}
}

func TestLabelStopWinsInsideBar(t *testing.T) {
	line := buyAlert()
	res := Label(&line, []models.Bar{bar(115, 85)}, 48)
	if !res.HitSL {
		t.Fatalf("expected stop hit, got %+v", res)
	}
	if res.FirstEvent != "SL" {
		t.Fatalf("stop must win inside a bar, got %q", res.FirstEvent)
	}
	if res.MaxTPReached != 0 || res.HitTPs[0] || res.HitTPs[1] {
		t.Fatalf("no target counts on the stop bar, got %+v", res)
	}
	if res.RRAtMaxTP != -1.0 {
		t.Fatalf("stop-out with no target is -1, got %v", res.RRAtMaxTP)
	}
}

func TestLabelTargetsDeepenAcrossBars(t *testing.T) {
	line := buyAlert()
	res := Label(&line, []models.Bar{bar(112, 99), bar(125, 105)}, 48)
	if res.FirstEvent != "TP1" {
		t.Fatalf("first event must stay the first touch, got %q", res.FirstEvent)
	}
	if res.MaxTPReached != 2 || !res.HitTPs[0] || !res.HitTPs[1] {
		t.Fatalf("expected the full ladder, got %+v", res)
	}
	if res.RRAtMaxTP != 2.0 {
		t.Fatalf("unexpected reward %v", res.RRAtMaxTP)
	}
}

func TestLabelGapOverLadderCountsLowestFirst(t *testing.T) {
	line := buyAlert()
	res := Label(&line, []models.Bar{bar(125, 99)}, 48)
	if res.FirstEvent != "TP1" {
		t.Fatalf("a gap over the ladder still enters at the lowest target, got %q", res.FirstEvent)
	}
	if res.MaxTPReached != 2 {
		t.Fatalf("unexpected depth %d", res.MaxTPReached)
	}
}

func TestLabelStopAfterTargetKeepsFirstEvent(t *testing.T) {
	line := buyAlert()
	res := Label(&line, []models.Bar{bar(112, 99), bar(101, 85), bar(125, 105)}, 48)
	if !res.HitSL {
		t.Fatalf("expected stop hit, got %+v", res)
	}
	if res.FirstEvent != "TP1" || res.MaxTPReached != 1 {
		t.Fatalf("stop after a target keeps the first event, got %+v", res)
	}
	if res.RRAtMaxTP != 1.0 {
		t.Fatalf("reward comes from the reached target, got %v", res.RRAtMaxTP)
	}
	if res.HitTPs[1] {
		t.Fatalf("bars after the stop must not count")
	}
}

func TestLabelNothingTouched(t *testing.T) {
	line := buyAlert()
	res := Label(&line, []models.Bar{bar(105, 95), bar(104, 96)}, 48)
	if res.HitSL || res.MaxTPReached != 0 {
		t.Fatalf("unexpected events %+v", res)
	}
	if res.FirstEvent != "NONE" || res.RRAtMaxTP != 0.0 {
		t.Fatalf("quiet window must stay at defaults, got %+v", res)
	}
}

func TestLabelSellInverts(t *testing.T) {
	line := buyAlert()
	line.Side = "SELL"
	line.SL = floatPtr(110)
	line.TPs = []float64{90, 80}
	res := Label(&line, []models.Bar{bar(105, 85)}, 48)
	if !res.HitTPs[0] || res.HitTPs[1] {
		t.Fatalf("unexpected ladder hits %+v", res)
	}
	if res.FirstEvent != "TP1" || res.RRAtMaxTP != 1.0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLabelSellStop(t *testing.T) {
	line := buyAlert()
	line.Side = "SELL"
	line.SL = floatPtr(110)
	line.TPs = []float64{90, 80}
	res := Label(&line, []models.Bar{bar(112, 95)}, 48)
	if !res.HitSL || res.FirstEvent != "SL" {
		t.Fatalf("expected inverted stop, got %+v", res)
	}
}

func TestLabelHorizonClamps(t *testing.T) {
	line := buyAlert()
	bars := []models.Bar{bar(105, 95), bar(104, 96), bar(125, 105)}
	res := Label(&line, bars, 2)
	if res.MaxTPReached != 0 || res.FirstEvent != "NONE" {
		t.Fatalf("events past the horizon must not count, got %+v", res)
	}
}

func TestLabelMalformedRecordsStayDefault(t *testing.T) {
	cases := []models.AlertLine{
		{Symbol: "ALT_USDT", Side: "HOLD", Timestamp: "2023-11-14T22:13:20Z", Entry: floatPtr(100), SL: floatPtr(90), TPs: []float64{110}},
		{Symbol: "ALT_USDT", Side: "BUY", Timestamp: "not-a-time", Entry: floatPtr(100), SL: floatPtr(90), TPs: []float64{110}},
		{Symbol: "ALT_USDT", Side: "BUY", Timestamp: "2023-11-14T22:13:20Z", Entry: floatPtr(0), SL: floatPtr(90), TPs: []float64{110}},
		{Symbol: "ALT_USDT", Side: "BUY", Timestamp: "2023-11-14T22:13:20Z", Entry: floatPtr(100), TPs: []float64{110}},
		{Side: "BUY", Timestamp: "2023-11-14T22:13:20Z", Entry: floatPtr(100), SL: floatPtr(90), TPs: []float64{110}},
	}
	hot := []models.Bar{bar(200, 10)}
	for i := range cases {
		res := Label(&cases[i], hot, 48)
		if res.HitSL || res.MaxTPReached != 0 || res.FirstEvent != "NONE" || res.RRAtMaxTP != 0.0 {
			t.Fatalf("case %d: malformed record must stay at defaults, got %+v", i, res)
		}
	}
}

func TestLabelIsIdempotent(t *testing.T) {
	line := buyAlert()
	bars := []models.Bar{bar(112, 99), bar(101, 85)}
	a := Label(&line, bars, 48)
	b := Label(&line, bars, 48)
	if a.FirstEvent != b.FirstEvent || a.MaxTPReached != b.MaxTPReached || a.RRAtMaxTP != b.RRAtMaxTP || a.HitSL != b.HitSL {
		t.Fatalf("same inputs must label identically: %+v vs %+v", a, b)
	}
}
