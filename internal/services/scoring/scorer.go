package scoring

import (
	"AltScan/internal/domain/models"
	"AltScan/pkg/config"
)

// Scorer turns a feature set into the additive score breakdown. It is
// pure arithmetic over the configured weights: a flag with no configured
// weight contributes nothing.
type Scorer struct {
	weights config.Weights
	mtf     config.MTFWeights
}

func NewScorer(w config.Weights, mw config.MTFWeights) *Scorer {
	return &Scorer{weights: w, mtf: mw}
}

// Score computes base, multi-timeframe and context components for one
// side. SELL scoring reads the bearish weight keys and falls back to the
// bullish ones where no bearish override is configured. The final score
// is always the sum of the three components.
func (s *Scorer) Score(fs models.FeatureSet, side models.Side) models.ScoreResult {
	w := s.weights
	var base int
	if side == models.SideSell {
		if fs.EmaDown {
			base += pick(w.EmaDown, w.EmaAlign)
		}
		if fs.MacdNeg {
			base += pick(w.MacdNeg, w.Macd)
		}
		if fs.VolSpike {
			base += w.VolSpike
		}
		if fs.Breakout {
			base += pick(w.Breakdown, w.Breakout)
		}
		retest := pick(w.RetestShort, w.Retest)
		if fs.Retest {
			base += retest
		}
		if fs.BounceSupport {
			base += retest
		}
		if fs.SupportRetest {
			base += retest
		}
		if fs.FallResistance {
			base += retest
		}
	} else {
		if fs.EmaAlign {
			base += w.EmaAlign
		}
		if fs.MacdPos {
			base += w.Macd
		}
		if fs.VolSpike {
			base += w.VolSpike
		}
		if fs.Breakout {
			base += w.Breakout
		}
		if fs.Retest {
			base += w.Retest
		}
		if fs.BounceSupport {
			base += pick(w.BounceSupport, w.Retest)
		}
		if fs.SupportRetest {
			base += pick(w.SupportRetest, w.Retest)
		}
		if fs.FallResistance {
			base += pick(w.FallResistance, w.Retest)
		}
	}

	var mtf int
	if fs.MtfEmaAlign {
		mtf += s.mtf.Ema
	}
	if fs.SwingConfirm {
		mtf += s.mtf.Swing
	}

	return models.ScoreResult{
		Base:  base,
		Mtf:   mtf,
		Ctx:   fs.CtxAdj,
		Final: base + mtf + fs.CtxAdj,
	}
}

func pick(override *int, fallback int) int {
	if override != nil {
		return *override
	}
	return fallback
}
