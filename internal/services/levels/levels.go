package levels

import "AltScan/internal/domain/models"

// Config scales stop and target distances in ATR units. TPAtrMults is
// strictly ascending, so targets always move away from entry.
type Config struct {
	SLAtrMult  float64
	TPAtrMults []float64
}

// Calc derives entry, stop and the take-profit ladder from the last close
// and current ATR. A scan that decided no side gets the empty set; a
// decided side always gets the full set.
func Calc(side models.Side, lastClose, atr float64, cfg Config) models.LevelSet {
	if side == models.SideNone {
		return models.LevelSet{}
	}

	set := models.LevelSet{
		Entry:       lastClose,
		TakeProfits: make([]float64, len(cfg.TPAtrMults)),
	}
	if side == models.SideSell {
		set.StopLoss = lastClose + atr*cfg.SLAtrMult
		for i, m := range cfg.TPAtrMults {
			set.TakeProfits[i] = lastClose - atr*m
		}
		return set
	}

	set.StopLoss = lastClose - atr*cfg.SLAtrMult
	for i, m := range cfg.TPAtrMults {
		set.TakeProfits[i] = lastClose + atr*m
	}
	return set
}
