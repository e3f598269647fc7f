// Package indicators provides the technical indicator series used by the
// built-in strategies. All functions are pure: they allocate and return a
// slice the same length as the input and never mutate it.
//
// Values before an indicator's warmup period are zero; callers are expected
// to skip indices below the documented warmup rather than interpret them.
package indicators

// SMA returns the simple moving average of values over the given window.
// Output index i is valid for i >= window-1.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 || len(values) < window {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA returns the exponential moving average of values with the given span,
// seeded with the first value. Every output index is populated; the series
// is considered warmed up after span-1 values.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// KDJ returns the stochastic oscillator series K, D and J. The raw
// stochastic compares each close against the n-bar rolling low/high range,
// K smooths it with a 1/kPeriod-weighted EMA, D smooths K the same way,
// and J is 3K - 2D. Output index i is valid for i >= n-1. A flat n-bar
// range yields the neutral raw value 50.
func KDJ(highs, lows, closes []float64, n, kPeriod, dPeriod int) (k, d, j []float64) {
	k = make([]float64, len(closes))
	d = make([]float64, len(closes))
	j = make([]float64, len(closes))
	if n <= 0 || kPeriod <= 0 || dPeriod <= 0 || len(closes) < n {
		return k, d, j
	}

	kAlpha := 1.0 / float64(kPeriod)
	dAlpha := 1.0 / float64(dPeriod)
	var prevK, prevD float64
	for i := n - 1; i < len(closes); i++ {
		lowN, highN := lows[i], highs[i]
		for w := i - n + 1; w < i; w++ {
			if lows[w] < lowN {
				lowN = lows[w]
			}
			if highs[w] > highN {
				highN = highs[w]
			}
		}

		rsv := 50.0
		if highN > lowN {
			rsv = (closes[i] - lowN) / (highN - lowN) * 100
		}
		if i == n-1 {
			prevK, prevD = rsv, rsv
		} else {
			prevK = kAlpha*rsv + (1-kAlpha)*prevK
			prevD = dAlpha*prevK + (1-dAlpha)*prevD
		}
		k[i], d[i] = prevK, prevD
		j[i] = 3*prevK - 2*prevD
	}
	return k, d, j
}

// MACD returns the MACD line (fast EMA minus slow EMA) and its signal line
// (EMA of the MACD line). The conventional warmup is slow+signal bars.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine []float64) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine = EMA(macd, signal)
	return macd, signalLine
}
