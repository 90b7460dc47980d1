package features

import "math"

// Rolling statistics follow the originating research conventions: windows are
// positional, a single observation is enough to produce a mean
// (min_periods=1), and NaN entries inside a window are skipped rather than
// poisoning the result. Standard deviation is the sample estimate and stays
// NaN until two finite points are in the window.

const epsilon = 1e-10

func pctChange(x []float64, periods int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < periods {
			out[i] = math.NaN()
			continue
		}
		out[i] = x[i]/x[i-periods] - 1
	}
	return out
}

func diff(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = x[i] - x[i-1]
	}
	return out
}

func rollingMean(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		sum, n := 0.0, 0
		for j := max(0, i-window+1); j <= i; j++ {
			if isFinite(x[j]) {
				sum += x[j]
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

func rollingStd(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		sum, n := 0.0, 0
		for j := max(0, i-window+1); j <= i; j++ {
			if isFinite(x[j]) {
				sum += x[j]
				n++
			}
		}
		if n < 2 {
			out[i] = math.NaN()
			continue
		}
		mean := sum / float64(n)
		var ss float64
		for j := max(0, i-window+1); j <= i; j++ {
			if isFinite(x[j]) {
				d := x[j] - mean
				ss += d * d
			}
		}
		out[i] = math.Sqrt(ss / float64(n-1))
	}
	return out
}

// ema is the exponential-weighted recursive definition (adjust=false):
// ema[0] = x[0], ema[i] = alpha*x[i] + (1-alpha)*ema[i-1].
func ema(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out
}

// zScore is the rolling z-score with the epsilon substitution on a zero
// standard deviation, so constant stretches normalize to 0 instead of NaN.
func zScore(x []float64, window int) []float64 {
	mean := rollingMean(x, window)
	sd := rollingStd(x, window)
	out := make([]float64, len(x))
	for i := range x {
		if sd[i] == 0 {
			sd[i] = epsilon
		}
		out[i] = (x[i] - mean[i]) / sd[i]
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
