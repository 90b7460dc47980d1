package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rajchodisetti/consensus-trader/internal/consensus"
	"github.com/Rajchodisetti/consensus-trader/internal/features"
	"github.com/Rajchodisetti/consensus-trader/internal/models"
	"github.com/Rajchodisetti/consensus-trader/internal/portfolio"
	"github.com/Rajchodisetti/consensus-trader/internal/risk"
	"github.com/Rajchodisetti/consensus-trader/internal/sizing"
)

// Backtester replays one symbol's observation series through the decision
// pipeline, one tick at a time, with no look-ahead: the decision for tick t
// is fixed before the t+1 return is touched.
type Backtester struct {
	cfg    Config
	client models.Client
	risk   *risk.State
	sizer  sizing.Sizer
	pf     *portfolio.Manager
	log    zerolog.Logger
}

// Result summarizes a completed run.
type Result struct {
	Records     []TickRecord
	Trades      []portfolio.TradeRecord
	Stats       portfolio.Stats
	FinalEquity float64
	MaxDrawdown float64 // curve-based, <= 0
	Ticks       int
	Decisions   int // nonzero post-gate decisions
	Wins        int
}

// NewBacktester wires the pipeline components. The caller owns the risk
// state and portfolio so runs can share or reset them explicitly.
func NewBacktester(cfg Config, client models.Client, riskState *risk.State,
	sizer sizing.Sizer, pf *portfolio.Manager, log zerolog.Logger) *Backtester {
	return &Backtester{cfg: cfg, client: client, risk: riskState, sizer: sizer, pf: pf, log: log}
}

// Run advances through the frame strictly in order and terminates cleanly on
// the final observation. Realized PnL per tick is the gated decision times
// the next-period return, computed only after the decision is fixed.
func (b *Backtester) Run(ctx context.Context, frame *features.Frame) (*Result, error) {
	start := frame.FirstValidRow()
	if start < 0 {
		return nil, fmt.Errorf("%s: no rows pass feature validation", frame.Symbol)
	}

	res := &Result{}
	var returns []float64

	// The last observation never produces a decision: its next-period
	// return does not exist yet.
	for t := start; t < frame.Len()-1; t++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bar := frame.Bars[t]
		vec := frame.InferenceVector(t)

		ev, err := evaluateTick(ctx, b.cfg, b.client, b.risk, frame.Symbol, vec, bar.Timestamp, returns)
		if err != nil {
			// One bad tick is no opportunity, not a dead run.
			b.log.Warn().Err(err).Str("symbol", frame.Symbol).Time("ts", bar.Timestamp).
				Msg("model fetch failed, tick skipped")
		}

		if ev.decision == consensus.DecisionLong {
			b.applyLong(frame.Symbol, ev.outputs.Probability, bar.Close, bar.Timestamp)
		}

		pnl := 0.0
		if next := frame.Ind.Ret1d[t+1]; !math.IsNaN(next) && !math.IsInf(next, 0) {
			pnl = float64(ev.decision) * next
		}
		b.risk.UpdateEquity(pnl)
		if ev.decision != consensus.DecisionFlat {
			b.risk.RegisterTradeResult(pnl)
			res.Decisions++
			if pnl > 0 {
				res.Wins++
			}
		}
		returns = append(returns, pnl)

		b.pf.MarkToMarket(frame.Symbol, bar.Close)
		res.Records = append(res.Records, TickRecord{
			Timestamp:    bar.Timestamp,
			Symbol:       frame.Symbol,
			DecisionID:   newDecisionID(),
			Signals:      ev.signals,
			Position:     ev.decision,
			Equity:       b.risk.LatestEquity(),
			Drawdown:     b.risk.CurrentDrawdown(),
			BlockedGates: ev.blocked,
		})
		res.Ticks++
	}

	last := frame.Bars[frame.Len()-1]
	b.pf.MarkToMarket(frame.Symbol, last.Close)

	res.Trades = b.pf.History()
	res.Stats = b.pf.GetStats(map[string]float64{frame.Symbol: last.Close})
	res.FinalEquity = b.risk.LatestEquity()
	res.MaxDrawdown = b.risk.CurrentDrawdown()
	return res, nil
}

// applyLong sizes and books a long entry. Underfunded or constraint-blocked
// entries are skipped, never partially filled.
func (b *Backtester) applyLong(symbol string, confidence, price float64, ts time.Time) {
	notional := b.sizer.Notional(confidence, b.pf.Cash(), b.pf.AvailableCapital())
	if !b.pf.CanOpenNewPosition(symbol, notional) {
		return
	}
	shares := math.Floor(notional / price)
	if shares < 1 {
		return
	}
	applied := b.pf.UpdatePosition(symbol, portfolio.ActionBuy, shares, price, ts, "consensus_long")
	if applied {
		b.log.Debug().Str("symbol", symbol).Float64("shares", shares).Float64("price", price).
			Msg("long entry booked")
	}
}

// WriteCSV exports the decision log in reporting column order.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "symbol", "xgb_signal", "ppo_signal", "sentiment_signal", "position", "equity", "drawdown"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range r.Records {
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.Symbol,
			strconv.Itoa(int(rec.Signals.XGB)),
			strconv.Itoa(int(rec.Signals.PPO)),
			strconv.Itoa(int(rec.Signals.Sentiment)),
			strconv.Itoa(int(rec.Position)),
			strconv.FormatFloat(rec.Equity, 'f', -1, 64),
			strconv.FormatFloat(rec.Drawdown, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
