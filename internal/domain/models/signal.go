package models

import (
	"fmt"
	"time"
)

// Side is the trade direction a scan decided on.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideNone Side = "NONE"
)

func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideBuy, SideSell, SideNone:
		return Side(s), true
	}
	return SideNone, false
}

// FeatureSet holds every detector outcome for one symbol on the primary
// timeframe. The set is fixed; a flag that was not evaluated stays false.
type FeatureSet struct {
	EmaAlign bool `json:"ema_align"` // close > fast EMA > slow EMA
	EmaDown  bool `json:"ema_down"`  // close < fast EMA < slow EMA
	MacdPos  bool `json:"macd_pos"`  // MACD histogram above zero
	MacdNeg  bool `json:"macd_neg"`  // MACD histogram below zero
	VolSpike bool `json:"vol_spike"` // volume above rolling average * multiplier

	Breakout       bool `json:"breakout"`        // close beyond recent resistance
	Retest         bool `json:"retest"`          // dip into resistance zone, close held above
	BounceSupport  bool `json:"bounce_support"`  // wick into support zone, close back above
	SupportRetest  bool `json:"support_retest"`  // repeat bounce within the persistence window
	FallResistance bool `json:"fall_resistance"` // rejection at resistance zone

	MtfEmaAlign  bool `json:"mtf_ema_align"` // EMA alignment on the confirmation timeframe
	SwingConfirm bool `json:"swing_confirm"` // EMA alignment and MACD agreement on all swing timeframes

	CtxAdj int `json:"ctx_adj"` // market context adjustment from the reference symbol
}

// Tags lists the names of every raised flag, in detector order. CtxAdj is
// reported as ctx_bull or ctx_bear when nonzero.
func (f FeatureSet) Tags() []string {
	tags := make([]string, 0, 8)
	for _, t := range []struct {
		on   bool
		name string
	}{
		{f.EmaAlign, "ema_align"},
		{f.EmaDown, "ema_down"},
		{f.MacdPos, "macd_pos"},
		{f.MacdNeg, "macd_neg"},
		{f.VolSpike, "vol_spike"},
		{f.Breakout, "breakout"},
		{f.Retest, "retest"},
		{f.BounceSupport, "bounce_support"},
		{f.SupportRetest, "support_retest"},
		{f.FallResistance, "fall_resistance"},
		{f.MtfEmaAlign, "mtf_ema_align"},
		{f.SwingConfirm, "swing_confirm"},
	} {
		if t.on {
			tags = append(tags, t.name)
		}
	}
	if f.CtxAdj > 0 {
		tags = append(tags, "ctx_bull")
	} else if f.CtxAdj < 0 {
		tags = append(tags, "ctx_bear")
	}
	return tags
}

// ScoreResult is the additive score breakdown for one side.
type ScoreResult struct {
	Base  int `json:"base_score"`
	Mtf   int `json:"mtf_score"`
	Ctx   int `json:"ctx_adj"`
	Final int `json:"final_score"` // always Base + Mtf + Ctx
}

// LevelSet carries entry, stop and the ordered take-profit ladder.
// A scan that decided no side leaves the whole set empty.
type LevelSet struct {
	Entry       float64
	StopLoss    float64
	TakeProfits []float64 // ascending for BUY, descending for SELL
}

func (l LevelSet) Empty() bool {
	return l.Entry == 0 && l.StopLoss == 0 && len(l.TakeProfits) == 0
}

// SignalRecord is the full outcome of one symbol scan.
type SignalRecord struct {
	Timestamp time.Time
	Symbol    string
	Exchange  string
	Timeframe string
	Side      Side
	Features  FeatureSet
	Score     ScoreResult
	Levels    LevelSet
}

// ID is stable for a given symbol, side and scan second, so a re-emitted
// record overwrites rather than duplicates downstream.
func (r *SignalRecord) ID() string {
	return fmt.Sprintf("%s|%s|%d", r.Symbol, r.Side, r.Timestamp.Unix())
}
