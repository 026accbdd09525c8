package scoring

import (
	"testing"

	"AltScan/internal/domain/models"
	"AltScan/pkg/config"
)

func intPtr(v int) *int { return &v }

func baseWeights() config.Weights {
	return config.Weights{
		EmaAlign: 2,
		Macd:     1,
		VolSpike: 1,
		Breakout: 3,
		Retest:   2,
	}
}

func TestScoreFinalIsComponentSum(t *testing.T) {
	s := NewScorer(baseWeights(), config.MTFWeights{Ema: 1, Swing: 2})
	fs := models.FeatureSet{
		EmaAlign:     true,
		MacdPos:      true,
		Breakout:     true,
		MtfEmaAlign:  true,
		SwingConfirm: true,
		CtxAdj:       -1,
	}
	got := s.Score(fs, models.SideBuy)
	if got.Base != 6 {
		t.Fatalf("unexpected base %d", got.Base)
	}
	if got.Mtf != 3 {
		t.Fatalf("unexpected mtf %d", got.Mtf)
	}
	if got.Ctx != -1 {
		t.Fatalf("unexpected ctx %d", got.Ctx)
	}
	if got.Final != got.Base+got.Mtf+got.Ctx {
		t.Fatalf("final must be the component sum, got %+v", got)
	}
}

func TestScoreMissingWeightsContributeZero(t *testing.T) {
	s := NewScorer(config.Weights{}, config.MTFWeights{})
	fs := models.FeatureSet{
		EmaAlign: true, MacdPos: true, VolSpike: true,
		Breakout: true, Retest: true, BounceSupport: true,
		MtfEmaAlign: true, SwingConfirm: true,
	}
	got := s.Score(fs, models.SideBuy)
	if got.Base != 0 || got.Mtf != 0 || got.Final != 0 {
		t.Fatalf("unconfigured weights must score zero, got %+v", got)
	}
}

func TestScoreVariantsShareRetestBucket(t *testing.T) {
	s := NewScorer(baseWeights(), config.MTFWeights{})
	fs := models.FeatureSet{BounceSupport: true, SupportRetest: true, FallResistance: true}
	got := s.Score(fs, models.SideBuy)
	if got.Base != 6 {
		t.Fatalf("each variant should add the retest weight, got %+v", got)
	}
}

func TestScoreDedicatedVariantWeight(t *testing.T) {
	w := baseWeights()
	w.BounceSupport = intPtr(5)
	s := NewScorer(w, config.MTFWeights{})
	got := s.Score(models.FeatureSet{BounceSupport: true}, models.SideBuy)
	if got.Base != 5 {
		t.Fatalf("dedicated weight should win over the bucket, got %+v", got)
	}
}

func TestScoreSellFallsBackToBullishKeys(t *testing.T) {
	s := NewScorer(baseWeights(), config.MTFWeights{})
	fs := models.FeatureSet{EmaDown: true, MacdNeg: true, FallResistance: true}
	got := s.Score(fs, models.SideSell)
	// ema_align 2 + macd 1 + retest 2
	if got.Base != 5 {
		t.Fatalf("expected bullish fallbacks, got %+v", got)
	}
}

func TestScoreSellPrefersBearishKeys(t *testing.T) {
	w := baseWeights()
	w.EmaDown = intPtr(4)
	w.RetestShort = intPtr(3)
	s := NewScorer(w, config.MTFWeights{})
	fs := models.FeatureSet{EmaDown: true, FallResistance: true}
	got := s.Score(fs, models.SideSell)
	if got.Base != 7 {
		t.Fatalf("expected bearish overrides, got %+v", got)
	}
}

func TestScoreSellIgnoresBullishTrendFlags(t *testing.T) {
	s := NewScorer(baseWeights(), config.MTFWeights{})
	fs := models.FeatureSet{EmaAlign: true, MacdPos: true}
	got := s.Score(fs, models.SideSell)
	if got.Base != 0 {
		t.Fatalf("bullish trend flags must not score a SELL, got %+v", got)
	}
}
