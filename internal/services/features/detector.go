package features

import "AltScan/internal/domain/models"

// StructureConfig controls the support/resistance reference window and the
// pattern thresholds.
type StructureConfig struct {
	Window      int     // bars before the evaluated bar, capped by history
	MinMovePct  float64 // minimum margin above resistance for a breakout
	Persistence int     // how far back a prior bounce still validates a support retest
}

// Structure holds the detector outcome at one bar. Zone checks use half an
// ATR around the reference level. A breakout suppresses every other
// structural flag for the same bar.
type Structure struct {
	Support    float64
	Resistance float64

	Breakout       bool
	Retest         bool
	BounceSupport  bool
	SupportRetest  bool
	FallResistance bool
}

// DetectStructure evaluates the structural flags for bars[at] against the
// window immediately before it. The evaluated bar never contributes to its
// own reference levels. With no history before at, everything stays false.
func DetectStructure(bars []models.Bar, atr []float64, cfg StructureConfig, at int) Structure {
	var s Structure
	if at <= 0 || at >= len(bars) || at >= len(atr) {
		return s
	}

	s.Support, s.Resistance = referenceLevels(bars, cfg.Window, at)

	bar := bars[at]
	zone := 0.5 * atr[at]

	s.Breakout = bar.Close > s.Resistance*(1+cfg.MinMovePct)
	if s.Breakout {
		return s
	}

	s.BounceSupport = bar.Low <= s.Support+zone && bar.Close > s.Support
	if s.BounceSupport && bar.Close >= bars[at-1].Close && priorBounce(bars, atr, cfg, at) {
		s.SupportRetest = true
	}

	s.FallResistance = bar.High >= s.Resistance-zone && bar.Close < s.Resistance
	s.Retest = bar.Low <= s.Resistance+zone && bar.Close >= s.Resistance

	return s
}

// referenceLevels returns the lowest low and highest high over up to window
// bars strictly before at.
func referenceLevels(bars []models.Bar, window, at int) (support, resistance float64) {
	if window < 1 {
		window = 1
	}
	lo := at - window
	if lo < 0 {
		lo = 0
	}
	support, resistance = bars[lo].Low, bars[lo].High
	for _, b := range bars[lo:at] {
		if b.Low < support {
			support = b.Low
		}
		if b.High > resistance {
			resistance = b.High
		}
	}
	return support, resistance
}

// priorBounce reports whether any of the bars inside the persistence
// window before at bounced off its own support level.
func priorBounce(bars []models.Bar, atr []float64, cfg StructureConfig, at int) bool {
	persistence := cfg.Persistence
	if persistence < 1 {
		persistence = DefaultPersistence
	}
	for j := at - persistence; j < at; j++ {
		if j < 1 {
			continue
		}
		if bounceAt(bars, atr, cfg, j) {
			return true
		}
	}
	return false
}

// bounceAt re-evaluates the bounce predicate at j with j's own reference
// window and ATR.
func bounceAt(bars []models.Bar, atr []float64, cfg StructureConfig, j int) bool {
	support, resistance := referenceLevels(bars, cfg.Window, j)
	bar := bars[j]
	if bar.Close > resistance*(1+cfg.MinMovePct) {
		return false
	}
	return bar.Low <= support+0.5*atr[j] && bar.Close > support
}
