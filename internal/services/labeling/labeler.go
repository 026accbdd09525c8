package labeling

import (
	"math"

	"AltScan/internal/domain/models"
)

// Label replays one recorded alert against the bars that followed it and
// reports what was hit. The walk is deterministic: bars in order, the
// stop checked before any target inside a bar, and the scan ends the
// moment the stop is touched. Targets keep deepening across later bars.
//
// A record that cannot be traded (missing or malformed timestamp, side
// that is not BUY or SELL, zero entry or absent stop) keeps every default:
// nothing hit, first event NONE, reward zero.
func Label(line *models.AlertLine, bars []models.Bar, horizon int) models.LabelResult {
	res := models.NewLabelResult(len(line.TPs))

	side, ok := models.ParseSide(line.Side)
	if !ok || (side != models.SideBuy && side != models.SideSell) {
		return res
	}
	if _, tok := line.Time(); !tok {
		return res
	}
	if line.Symbol == "" || line.Entry == nil || *line.Entry == 0 || line.SL == nil {
		return res
	}

	entry, sl := *line.Entry, *line.SL
	buy := side == models.SideBuy
	if horizon > 0 && len(bars) > horizon {
		bars = bars[:horizon]
	}

	for _, b := range bars {
		slHit := (buy && b.Low <= sl) || (!buy && b.High >= sl)
		if slHit {
			res.HitSL = true
			if res.FirstEvent == models.EventNone {
				res.FirstEvent = models.EventSL
			}
			break
		}

		first, deepest := 0, 0
		for i, tp := range line.TPs {
			touched := (buy && b.High >= tp) || (!buy && b.Low <= tp)
			if touched {
				if first == 0 {
					first = i + 1
				}
				if i+1 > deepest {
					deepest = i + 1
				}
			}
		}
		if deepest > 0 {
			if res.FirstEvent == models.EventNone {
				res.FirstEvent = models.EventTP(first)
			}
			if deepest > res.MaxTPReached {
				res.MaxTPReached = deepest
			}
		}
	}

	for i := 0; i < res.MaxTPReached && i < len(res.HitTPs); i++ {
		res.HitTPs[i] = true
	}

	risk := math.Abs(entry - sl)
	switch {
	case res.MaxTPReached > 0 && risk > 0:
		res.RRAtMaxTP = math.Abs(line.TPs[res.MaxTPReached-1]-entry) / risk
	case res.HitSL:
		res.RRAtMaxTP = -1.0
	}
	return res
}
