package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/consensus-trader/internal/marketdata"
)

func seriesFromCloses(t *testing.T, closes []float64) *marketdata.Series {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]marketdata.Bar, len(closes))
	for i, c := range closes {
		bars[i] = marketdata.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1e6,
		}
	}
	s, err := marketdata.NewSeries("TEST", bars)
	require.NoError(t, err)
	return s
}

func TestRollingMean_MinPeriodsOne(t *testing.T) {
	x := []float64{2, 4, 6, 8}
	got := rollingMean(x, 3)
	assert.InDelta(t, 2.0, got[0], 1e-12, "one observation is enough")
	assert.InDelta(t, 3.0, got[1], 1e-12)
	assert.InDelta(t, 4.0, got[2], 1e-12)
	assert.InDelta(t, 6.0, got[3], 1e-12, "window slides")
}

func TestRollingMean_SkipsNaN(t *testing.T) {
	x := []float64{math.NaN(), 4, math.NaN(), 8}
	got := rollingMean(x, 4)
	assert.True(t, math.IsNaN(got[0]), "no finite point yet")
	assert.InDelta(t, 4.0, got[1], 1e-12)
	assert.InDelta(t, 6.0, got[3], 1e-12, "NaN entries are skipped, not zeroed")
}

func TestRollingStd_NeedsTwoPoints(t *testing.T) {
	x := []float64{3, 5, 7}
	got := rollingStd(x, 3)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, math.Sqrt2, got[1], 1e-12, "sample std of {3,5}")
	assert.InDelta(t, 2.0, got[2], 1e-12, "sample std of {3,5,7}")
}

func TestEMA_RecursiveDefinition(t *testing.T) {
	x := []float64{10, 20, 30}
	got := ema(x, 3) // alpha = 0.5
	assert.Equal(t, 10.0, got[0], "seeded from the first value")
	assert.InDelta(t, 15.0, got[1], 1e-12)
	assert.InDelta(t, 22.5, got[2], 1e-12)
}

func TestZScore_ConstantStretchIsZero(t *testing.T) {
	x := []float64{5, 5, 5, 5, 5}
	got := zScore(x, 3)
	assert.True(t, math.IsNaN(got[0]), "std undefined on a single point")
	for i := 1; i < len(got); i++ {
		assert.Equal(t, 0.0, got[i], "row %d: zero std takes the epsilon, z collapses to 0", i)
	}
}

func TestRSI_NeutralBackfillAndExtremes(t *testing.T) {
	// Strictly rising closes: average loss is zero, RSI saturates near 100.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	ind := ComputeIndicators(seriesFromCloses(t, closes))

	assert.Equal(t, 50.0, ind.RSI[0], "undefined first row backfills neutral")
	assert.Greater(t, ind.RSI[29], 99.9, "no losses drives RSI to the ceiling")

	// Strictly falling closes saturate near 0.
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	ind = ComputeIndicators(seriesFromCloses(t, closes))
	assert.Less(t, ind.RSI[29], 0.1)
}

func TestComputeIndicators_TrendBinary(t *testing.T) {
	// A long flat stretch then a sharp ramp lifts SMA20 above SMA50.
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100
		if i >= 60 {
			closes[i] = 100 + 5*float64(i-59)
		}
	}
	ind := ComputeIndicators(seriesFromCloses(t, closes))

	assert.Equal(t, 0.0, ind.TrendSMA[59], "flat stretch: SMA20 == SMA50 is not a trend")
	assert.Equal(t, 1.0, ind.TrendSMA[79])
}

func TestComputeIndicators_ReturnWarmup(t *testing.T) {
	closes := []float64{100, 110, 99, 99, 99, 110}
	ind := ComputeIndicators(seriesFromCloses(t, closes))

	assert.True(t, math.IsNaN(ind.Ret1d[0]))
	assert.InDelta(t, 0.10, ind.Ret1d[1], 1e-12)
	for i := 0; i < 5; i++ {
		assert.True(t, math.IsNaN(ind.Ret5d[i]), "ret_5d undefined before 5 periods")
	}
	assert.InDelta(t, 0.10, ind.Ret5d[5], 1e-12)
}

func TestFrame_ValidationVsInferencePolicies(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/3)*5
	}
	frame, err := NewFrame(seriesFromCloses(t, closes))
	require.NoError(t, err)

	_, err = frame.FeatureVector(0)
	assert.Error(t, err, "warmup rows fail validation, never zero-filled")

	vec := frame.InferenceVector(0)
	require.Len(t, vec, len(FeatureColumns))
	for j, v := range vec {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "column %s", FeatureColumns[j])
		assert.LessOrEqual(t, math.Abs(v), clampBound)
	}

	first := frame.FirstValidRow()
	require.GreaterOrEqual(t, first, 1)
	_, err = frame.FeatureVector(first)
	assert.NoError(t, err)
	if first > 0 {
		_, err = frame.FeatureVector(first - 1)
		assert.Error(t, err)
	}
}

func TestClampFeature(t *testing.T) {
	assert.Equal(t, 0.0, clampFeature(math.NaN()))
	assert.Equal(t, clampBound, clampFeature(math.Inf(1)))
	assert.Equal(t, -clampBound, clampFeature(math.Inf(-1)))
	assert.Equal(t, clampBound, clampFeature(42.0))
	assert.Equal(t, -clampBound, clampFeature(-42.0))
	assert.Equal(t, 1.25, clampFeature(1.25))
}
