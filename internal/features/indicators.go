package features

import (
	"math"

	"github.com/Rajchodisetti/consensus-trader/internal/marketdata"
)

// Indicators holds the raw technical indicator columns for one symbol's
// chronological series. Each slice is aligned with the source bars.
type Indicators struct {
	Ret1d      []float64
	Ret5d      []float64
	SMA20      []float64
	SMA50      []float64
	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	BBWidth    []float64
	VolSMA     []float64
	VolRatio   []float64
	TrendSMA   []float64 // binary: 1 iff sma_20 > sma_50
}

// ComputeIndicators derives the indicator set from one symbol's bars.
// Grouping never crosses symbols: the caller passes a single-symbol series.
func ComputeIndicators(s *marketdata.Series) Indicators {
	closes := s.Closes()
	volumes := s.Volumes()
	n := len(closes)

	ind := Indicators{
		Ret1d: pctChange(closes, 1),
		Ret5d: pctChange(closes, 5),
		SMA20: rollingMean(closes, 20),
		SMA50: rollingMean(closes, 50),
	}

	// RSI(14): rolling means of positive and negative deltas; a zero average
	// loss takes the epsilon before the ratio. Undefined rows (series start)
	// are backfilled with neutral 50.
	delta := diff(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i, d := range delta {
		if math.IsNaN(d) {
			gains[i], losses[i] = math.NaN(), math.NaN()
			continue
		}
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}
	avgGain := rollingMean(gains, 14)
	avgLoss := rollingMean(losses, 14)
	ind.RSI = make([]float64, n)
	for i := range ind.RSI {
		loss := avgLoss[i]
		if loss == 0 {
			loss = epsilon
		}
		rsi := 100 - 100/(1+avgGain[i]/loss)
		if math.IsNaN(rsi) {
			rsi = 50
		}
		ind.RSI[i] = rsi
	}

	// MACD = EMA(12) - EMA(26); signal line = EMA(9) of MACD.
	ema12 := ema(closes, 12)
	ema26 := ema(closes, 26)
	ind.MACD = make([]float64, n)
	for i := range ind.MACD {
		ind.MACD[i] = ema12[i] - ema26[i]
	}
	ind.MACDSignal = ema(ind.MACD, 9)

	// Bollinger width: 2 * rolling_std(20) / rolling_mean(20).
	mid := rollingMean(closes, 20)
	sd := rollingStd(closes, 20)
	ind.BBWidth = make([]float64, n)
	for i := range ind.BBWidth {
		ind.BBWidth[i] = 2 * sd[i] / mid[i]
	}

	ind.VolSMA = rollingMean(volumes, 20)
	ind.VolRatio = make([]float64, n)
	for i := range ind.VolRatio {
		ind.VolRatio[i] = volumes[i] / ind.VolSMA[i]
	}

	ind.TrendSMA = make([]float64, n)
	for i := range ind.TrendSMA {
		if ind.SMA20[i] > ind.SMA50[i] {
			ind.TrendSMA[i] = 1
		}
	}

	return ind
}
