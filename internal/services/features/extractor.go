package features

import (
	"fmt"

	"AltScan/internal/domain/models"
	"AltScan/internal/indicator"
)

const (
	// DefaultPersistence is how many bars back a bounce still counts as
	// recent for the support retest pattern.
	DefaultPersistence = 5

	atrLength  = 14
	rsiLength  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// Config holds the knobs the extractor reads per scan.
type Config struct {
	Window       int     // support/resistance reference window
	MinMovePct   float64 // breakout margin above resistance
	VolSpikeMult float64 // volume over rolling average threshold
	EmaFast      int
	EmaSlow      int
	Persistence  int // 0 means DefaultPersistence
}

// Snapshot is everything the scan derives from one primary-timeframe
// series: the flag set plus the raw values scoring and levels need.
type Snapshot struct {
	Features  models.FeatureSet
	Structure Structure
	ATR       float64
	RSI       float64
	LastClose float64
}

// BuildSnapshot computes trend, volume and structural flags at the most
// recent bar of the series. The multi-timeframe and context flags stay
// false; those are confirmed separately against other series.
func BuildSnapshot(bars []models.Bar, cfg Config) (Snapshot, error) {
	if len(bars) == 0 {
		return Snapshot{}, fmt.Errorf("no bars to extract features from")
	}

	closes := models.Closes(bars)
	highs := models.Highs(bars)
	lows := models.Lows(bars)
	vols := models.Volumes(bars)

	emaFast := indicator.EMA(closes, cfg.EmaFast)
	emaSlow := indicator.EMA(closes, cfg.EmaSlow)
	hist := indicator.MACDHist(closes, macdFast, macdSlow, macdSignal)
	atr := indicator.ATR(highs, lows, closes, atrLength)
	rsi := indicator.RSI(closes, rsiLength)
	volAvg := indicator.SMA(vols, cfg.Window)

	i := len(bars) - 1
	snap := Snapshot{
		ATR:       atr[i],
		RSI:       rsi[i],
		LastClose: closes[i],
	}

	fs := &snap.Features
	fs.EmaAlign = closes[i] > emaFast[i] && emaFast[i] > emaSlow[i]
	fs.EmaDown = closes[i] < emaFast[i] && emaFast[i] < emaSlow[i]
	fs.MacdPos = hist[i] > 0
	fs.MacdNeg = hist[i] < 0
	fs.VolSpike = vols[i] > volAvg[i]*cfg.VolSpikeMult

	snap.Structure = DetectStructure(bars, atr, StructureConfig{
		Window:      cfg.Window,
		MinMovePct:  cfg.MinMovePct,
		Persistence: cfg.Persistence,
	}, i)
	fs.Breakout = snap.Structure.Breakout
	fs.Retest = snap.Structure.Retest
	fs.BounceSupport = snap.Structure.BounceSupport
	fs.SupportRetest = snap.Structure.SupportRetest
	fs.FallResistance = snap.Structure.FallResistance

	return snap, nil
}
