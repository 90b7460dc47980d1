package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/consensus-trader/internal/consensus"
	"github.com/Rajchodisetti/consensus-trader/internal/features"
	"github.com/Rajchodisetti/consensus-trader/internal/marketdata"
	"github.com/Rajchodisetti/consensus-trader/internal/models"
	"github.com/Rajchodisetti/consensus-trader/internal/portfolio"
	"github.com/Rajchodisetti/consensus-trader/internal/risk"
	"github.com/Rajchodisetti/consensus-trader/internal/signal"
	"github.com/Rajchodisetti/consensus-trader/internal/sizing"
)

// Fixed-output model stubs so runs are fully deterministic.

type fixedProb float64

func (p fixedProb) Probability(context.Context, string, []float64) (float64, error) {
	return float64(p), nil
}

type fixedPolicy models.Action

func (a fixedPolicy) Action(context.Context, string, []float64) (models.Action, error) {
	return models.Action(a), nil
}

func frameFromCloses(t *testing.T, closes []float64) *features.Frame {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]marketdata.Bar, len(closes))
	for i, c := range closes {
		bars[i] = marketdata.Bar{Timestamp: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1e6}
	}
	s, err := marketdata.NewSeries("TEST", bars)
	require.NoError(t, err)
	frame, err := features.NewFrame(s)
	require.NoError(t, err)
	return frame
}

func newTestBacktester(t *testing.T, client models.Client) (*Backtester, *risk.State, *portfolio.Manager) {
	t.Helper()
	riskState := risk.NewState(risk.Config{})
	sizer, err := sizing.New(2.0, sizing.PresetConservative)
	require.NoError(t, err)
	pf := portfolio.NewManager(portfolio.Config{})
	bt := NewBacktester(DefaultConfig(), client, riskState, sizer, pf, zerolog.Nop())
	return bt, riskState, pf
}

// Rising market, models always agree long, no sentiment source: every tick
// decides long and realizes the next day's positive return.
func TestBacktest_RisingMarketAllLong(t *testing.T) {
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.01
	}
	frame := frameFromCloses(t, closes)

	client := models.Client{Prob: fixedProb(0.8), Policy: fixedPolicy(models.ActionLong)}
	bt, riskState, pf := newTestBacktester(t, client)

	res, err := bt.Run(context.Background(), frame)
	require.NoError(t, err)

	assert.Equal(t, res.Ticks, res.Decisions, "nothing blocks in a calm rising market")
	assert.Equal(t, res.Decisions, res.Wins)

	// Equity is the sum of next-day returns over the decided ticks, and the
	// curve has exactly one point per tick.
	want := 0.0
	for t0 := frame.FirstValidRow(); t0 < frame.Len()-1; t0++ {
		want += frame.Ind.Ret1d[t0+1]
	}
	assert.InDelta(t, want, res.FinalEquity, 1e-9)
	assert.Len(t, riskState.EquityCurve(), res.Ticks)
	assert.Equal(t, 0.0, res.MaxDrawdown, "monotone rising curve never draws down")

	// One position opened on the first decided tick; held symbols never
	// pyramid through the decision path.
	history := pf.History()
	require.Len(t, history, 1)
	assert.Equal(t, portfolio.ActionBuy, history[0].Action)
}

// The decision for tick t must use only information up to t: feeding the
// models a crafted series where the last return is a crash, the crash only
// shows up in the PnL of the tick before it, never earlier.
func TestBacktest_NoLookAhead(t *testing.T) {
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.01
	}
	closes[79] = closes[78] * 0.5 // crash on the final bar

	frame := frameFromCloses(t, closes)
	client := models.Client{Prob: fixedProb(0.8), Policy: fixedPolicy(models.ActionLong)}
	bt, _, _ := newTestBacktester(t, client)

	res, err := bt.Run(context.Background(), frame)
	require.NoError(t, err)

	// Every record except the last realized a calm +1% day.
	for _, rec := range res.Records[:len(res.Records)-1] {
		assert.GreaterOrEqual(t, rec.Equity, 0.0)
	}
	last := res.Records[len(res.Records)-1]
	prev := res.Records[len(res.Records)-2]
	assert.InDelta(t, -0.5, last.Equity-prev.Equity, 1e-9, "the crash lands on exactly one tick's PnL")
}

// Falling market: the first losing trade arms the cooldown, which blocks the
// next five ticks, so nonzero decisions recur every sixth tick.
func TestBacktest_CooldownCadence(t *testing.T) {
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 0.99
	}
	frame := frameFromCloses(t, closes)

	client := models.Client{Prob: fixedProb(0.8), Policy: fixedPolicy(models.ActionLong)}
	bt, riskState, _ := newTestBacktester(t, client)

	res, err := bt.Run(context.Background(), frame)
	require.NoError(t, err)

	want := (res.Ticks + 5) / 6
	assert.Equal(t, want, res.Decisions, "one decision per six ticks under constant losses")
	assert.Equal(t, 0, res.Wins)
	assert.Less(t, res.FinalEquity, 0.0)
	assert.Less(t, riskState.CurrentDrawdown(), 0.0)

	// Blocked ticks carry the cooldown gate in their record.
	sawCooldown := false
	for _, rec := range res.Records {
		for _, g := range rec.BlockedGates {
			if g == risk.GateCooldown {
				sawCooldown = true
			}
		}
	}
	assert.True(t, sawCooldown)
}

// A populated sentiment table carries real scores into the consensus: the
// models agree long every tick, but a bearish score on every date vetoes
// each trade.
func TestBacktest_SentimentTableVetoes(t *testing.T) {
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.01
	}
	frame := frameFromCloses(t, closes)

	var table strings.Builder
	table.WriteString("date,symbol,sentiment_score\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < len(closes); i++ {
		fmt.Fprintf(&table, "%s,TEST,-0.5\n", start.AddDate(0, 0, i).Format("2006-01-02"))
	}
	sentiment, err := models.ReadSentimentCSV(strings.NewReader(table.String()))
	require.NoError(t, err)

	client := models.Client{Prob: fixedProb(0.8), Policy: fixedPolicy(models.ActionLong), Sentiment: sentiment}
	bt, _, pf := newTestBacktester(t, client)

	res, err := bt.Run(context.Background(), frame)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Decisions, "bearish sentiment suppresses every agreed long")
	assert.Empty(t, pf.History())
	for _, rec := range res.Records {
		assert.Equal(t, signal.Short, rec.Signals.Sentiment)
		assert.Equal(t, consensus.DecisionFlat, rec.Position)
	}
}

// Flat signals never trade and never touch the cooldown.
func TestBacktest_DisagreementStaysFlat(t *testing.T) {
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.005
	}
	frame := frameFromCloses(t, closes)

	client := models.Client{Prob: fixedProb(0.8), Policy: fixedPolicy(models.ActionShort)}
	bt, riskState, pf := newTestBacktester(t, client)

	res, err := bt.Run(context.Background(), frame)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Decisions)
	assert.Equal(t, 0.0, res.FinalEquity)
	assert.Empty(t, pf.History())
	assert.Equal(t, 0, riskState.CooldownRemaining())
}

// Sizing worked through: p=0.9 under the conservative preset gives fraction
// 0.425 of 100k capital, capped at the 30000 per-position limit, and the
// entry floors to whole shares.
func TestBacktest_EntrySizing(t *testing.T) {
	closes := make([]float64, 80)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.002
	}
	frame := frameFromCloses(t, closes)

	client := models.Client{Prob: fixedProb(0.9), Policy: fixedPolicy(models.ActionLong)}
	bt, _, pf := newTestBacktester(t, client)

	_, err := bt.Run(context.Background(), frame)
	require.NoError(t, err)

	history := pf.History()
	require.Len(t, history, 1)
	entry := history[0]

	wantShares := float64(int(30000 / entry.Price))
	assert.Equal(t, wantShares, entry.Quantity)
	assert.GreaterOrEqual(t, pf.Cash(), 0.0)
}

func TestBacktest_NoValidRows(t *testing.T) {
	frame := frameFromCloses(t, []float64{100, 101, 102})
	client := models.Client{Prob: fixedProb(0.8), Policy: fixedPolicy(models.ActionLong)}
	bt, _, _ := newTestBacktester(t, client)

	_, err := bt.Run(context.Background(), frame)
	assert.Error(t, err)
}
