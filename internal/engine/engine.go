// Package engine drives the per-tick pipeline: observe, signal, consensus,
// risk gate, size, apply, record. The same sequence runs for backtests and
// live ticks; only the observation source differs.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rajchodisetti/consensus-trader/internal/consensus"
	"github.com/Rajchodisetti/consensus-trader/internal/models"
	"github.com/Rajchodisetti/consensus-trader/internal/observ"
	"github.com/Rajchodisetti/consensus-trader/internal/risk"
	"github.com/Rajchodisetti/consensus-trader/internal/signal"
)

// Config selects the signal thresholds and the consensus form.
type Config struct {
	Thresholds       signal.Thresholds
	UseSentimentVeto bool
}

// DefaultConfig uses standard thresholds and the three-signal form.
func DefaultConfig() Config {
	return Config{Thresholds: signal.DefaultThresholds(), UseSentimentVeto: true}
}

// TickRecord is one row of the per-tick decision log.
type TickRecord struct {
	Timestamp    time.Time          `json:"timestamp"`
	Symbol       string             `json:"symbol"`
	DecisionID   string             `json:"decision_id"`
	Signals      signal.Set         `json:"signals"`
	Position     consensus.Decision `json:"position"` // decision after risk gating
	Equity       float64            `json:"equity"`
	Drawdown     float64            `json:"drawdown"`
	BlockedGates []string           `json:"blocked_gates,omitempty"`
}

// BlockedGatesString joins the blocked gate names for flat storage.
func (r TickRecord) BlockedGatesString() string {
	return strings.Join(r.BlockedGates, ",")
}

// evaluation is the outcome of one tick before sizing/apply.
type evaluation struct {
	outputs  models.Outputs
	signals  signal.Set
	raw      consensus.Decision // consensus before gating
	decision consensus.Decision // after gating
	blocked  []string
}

// evaluateTick runs signal derivation, consensus, and the risk gates for one
// observation. Gates are checked every tick so the cooldown counter advances
// even on flat ticks; they only downgrade nonzero decisions.
func evaluateTick(ctx context.Context, cfg Config, client models.Client, riskState *risk.State,
	symbol string, features []float64, ts time.Time, recentReturns []float64) (evaluation, error) {

	out, err := client.Fetch(ctx, symbol, features, ts)
	if err != nil {
		// Still tick the gates: a failed fetch is a flat tick, not a frozen
		// cooldown counter.
		riskState.CheckGates(recentReturns)
		return evaluation{}, err
	}

	set := signal.Derive(out, cfg.Thresholds)
	raw := consensus.FromSet(set, cfg.UseSentimentVeto)

	gates := riskState.CheckGates(recentReturns)
	decision := raw
	if raw != consensus.DecisionFlat && !gates.Allowed {
		decision = consensus.DecisionFlat
		for _, g := range gates.Blocked {
			observ.GateBlocks.WithLabelValues(g).Inc()
		}
	}
	if decision != consensus.DecisionFlat {
		observ.ConsensusDecisions.WithLabelValues(decision.String()).Inc()
	}

	return evaluation{
		outputs:  out,
		signals:  set,
		raw:      raw,
		decision: decision,
		blocked:  gates.Blocked,
	}, nil
}

func newDecisionID() string {
	return uuid.NewString()
}
