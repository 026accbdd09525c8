package indicator

import "math"

// Every function maps a length-N input to a length-N output. Early values
// are seeded approximations rather than gaps, so callers can index the
// series one-to-one against the bars that produced it.

// EMA computes an exponential moving average with multiplier 2/(span+1),
// seeded with the first value.
func EMA(values []float64, span int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if span < 1 {
		span = 1
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SMA computes a rolling mean over the trailing window. Positions before
// the window is full average whatever is available.
func SMA(values []float64, window int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		n := window
		if i+1 < window {
			n = i + 1
		} else if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(n)
	}
	return out
}

// RSI computes the relative strength index with Wilder smoothing
// (alpha 1/length, seeded with the first gain and loss). The first
// position has no delta and reports the neutral 50.
func RSI(values []float64, length int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if length < 1 {
		length = 1
	}
	out := make([]float64, len(values))
	out[0] = 50
	if len(values) == 1 {
		return out
	}
	alpha := 1.0 / float64(length)
	var maUp, maDown float64
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		if i == 1 {
			maUp, maDown = up, down
		} else {
			maUp = alpha*up + (1-alpha)*maUp
			maDown = alpha*down + (1-alpha)*maDown
		}
		rs := maUp / (maDown + 1e-9)
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// TrueRange computes the per-bar true range. The first bar has no prior
// close and uses high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	out[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the average true range as a rolling mean of the true range.
func ATR(highs, lows, closes []float64, length int) []float64 {
	return SMA(TrueRange(highs, lows, closes), length)
}

// MACDHist computes the MACD histogram: the fast/slow EMA difference minus
// its own signal-span EMA.
func MACDHist(values []float64, fast, slow, signal int) []float64 {
	if len(values) == 0 {
		return nil
	}
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	macd := make([]float64, len(values))
	for i := range macd {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMA(macd, signal)
	out := make([]float64, len(values))
	for i := range out {
		out[i] = macd[i] - sig[i]
	}
	return out
}
