package features

import (
	"fmt"
	"math"

	"github.com/Rajchodisetti/consensus-trader/internal/marketdata"
)

// zWindow is the rolling window for feature normalization.
const zWindow = 60

// clampBound caps inference-time feature magnitudes.
const clampBound = 10.0

// FeatureColumns is the fixed-order model input vector: the z-scored
// continuous indicators plus the binary trend flag. Order matters; trained
// models consume positional vectors.
var FeatureColumns = []string{
	"ret_1d_z", "ret_5d_z",
	"sma_20_z", "sma_50_z",
	"rsi_z",
	"macd_z", "macd_signal_z",
	"bb_width_z",
	"vol_sma_z", "vol_ratio_z",
	"trend_sma",
}

// Frame is one symbol's bars plus raw indicators plus normalized columns.
type Frame struct {
	Symbol string
	Bars   []marketdata.Bar
	Ind    Indicators

	Ret1dZ      []float64
	Ret5dZ      []float64
	SMA20Z      []float64
	SMA50Z      []float64
	RSIZ        []float64
	MACDZ       []float64
	MACDSignalZ []float64
	BBWidthZ    []float64
	VolSMAZ     []float64
	VolRatioZ   []float64
}

// NewFrame validates the series, computes indicators, and rolling z-scores
// every continuous indicator. Raw OHLCV and the binary trend flag are not
// normalized.
func NewFrame(s *marketdata.Series) (*Frame, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("feature frame: %w", err)
	}

	ind := ComputeIndicators(s)
	return &Frame{
		Symbol:      s.Symbol,
		Bars:        s.Bars,
		Ind:         ind,
		Ret1dZ:      zScore(ind.Ret1d, zWindow),
		Ret5dZ:      zScore(ind.Ret5d, zWindow),
		SMA20Z:      zScore(ind.SMA20, zWindow),
		SMA50Z:      zScore(ind.SMA50, zWindow),
		RSIZ:        zScore(ind.RSI, zWindow),
		MACDZ:       zScore(ind.MACD, zWindow),
		MACDSignalZ: zScore(ind.MACDSignal, zWindow),
		BBWidthZ:    zScore(ind.BBWidth, zWindow),
		VolSMAZ:     zScore(ind.VolSMA, zWindow),
		VolRatioZ:   zScore(ind.VolRatio, zWindow),
	}, nil
}

func (f *Frame) Len() int { return len(f.Bars) }

func (f *Frame) row(i int) [11]float64 {
	return [11]float64{
		f.Ret1dZ[i], f.Ret5dZ[i],
		f.SMA20Z[i], f.SMA50Z[i],
		f.RSIZ[i],
		f.MACDZ[i], f.MACDSignalZ[i],
		f.BBWidthZ[i],
		f.VolSMAZ[i], f.VolRatioZ[i],
		f.Ind.TrendSMA[i],
	}
}

// FeatureVector returns the fixed-order vector for row i, rejecting any
// non-finite value. This is the training/validation policy: bad rows fail,
// they are never zero-filled.
func (f *Frame) FeatureVector(i int) ([]float64, error) {
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("feature row %d out of range [0,%d)", i, f.Len())
	}
	raw := f.row(i)
	for j, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s row %d: non-finite %s", f.Symbol, i, FeatureColumns[j])
		}
	}
	return raw[:], nil
}

// InferenceVector returns the vector for row i under the decision-time
// policy: NaN becomes 0, +Inf becomes +10, -Inf becomes -10, and everything
// is clipped to [-10, 10]. Only used when a decision must be produced.
func (f *Frame) InferenceVector(i int) []float64 {
	raw := f.row(i)
	out := make([]float64, len(raw))
	for j, v := range raw {
		out[j] = clampFeature(v)
	}
	return out
}

// FirstValidRow returns the first row whose feature vector passes validation,
// or -1 when no row does. Backtests start here so warmup rows with undefined
// rolling statistics never reach the models.
func (f *Frame) FirstValidRow() int {
	for i := 0; i < f.Len(); i++ {
		if _, err := f.FeatureVector(i); err == nil {
			return i
		}
	}
	return -1
}

func clampFeature(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return clampBound
	case math.IsInf(v, -1):
		return -clampBound
	case v > clampBound:
		return clampBound
	case v < -clampBound:
		return -clampBound
	}
	return v
}
