// Package risk holds the per-account risk state: a cumulative realized PnL
// curve, a loss cooldown counter, and the boolean gates that can veto an
// otherwise-valid consensus decision. The state is a process-wide singleton
// scoped to one trading account and serializes all access internally.
package risk

import (
	"math"
	"sync"

	"github.com/Rajchodisetti/consensus-trader/internal/observ"
)

// Config defines the gate thresholds.
type Config struct {
	MaxVolatility float64 `yaml:"max_volatility" json:"max_volatility"`
	MaxDrawdown   float64 `yaml:"max_drawdown" json:"max_drawdown"`
	CooldownTicks int     `yaml:"cooldown_ticks" json:"cooldown_ticks"`
}

// DefaultConfig returns the standard gate thresholds.
func DefaultConfig() Config {
	return Config{MaxVolatility: 0.03, MaxDrawdown: 0.25, CooldownTicks: 5}
}

const (
	// volWindow is how many recent realized returns the volatility gate sees.
	volWindow = 20
	// minEquityPoints is how much curve history the drawdown gate needs
	// before it starts vetoing.
	minEquityPoints = 30
)

// State is the running risk bookkeeping. The equity curve is cumulative
// realized PnL (the first point is the first PnL, not starting capital) and
// is append-only within a run.
type State struct {
	mu       sync.Mutex
	cfg      Config
	equity   []float64
	cooldown int
}

// NewState builds risk state; zero config fields take defaults.
func NewState(cfg Config) *State {
	def := DefaultConfig()
	if cfg.MaxVolatility == 0 {
		cfg.MaxVolatility = def.MaxVolatility
	}
	if cfg.MaxDrawdown == 0 {
		cfg.MaxDrawdown = def.MaxDrawdown
	}
	if cfg.CooldownTicks == 0 {
		cfg.CooldownTicks = def.CooldownTicks
	}
	return &State{cfg: cfg}
}

// UpdateEquity appends a realized PnL to the cumulative curve.
func (s *State) UpdateEquity(pnl float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.equity) == 0 {
		s.equity = append(s.equity, pnl)
	} else {
		s.equity = append(s.equity, s.equity[len(s.equity)-1]+pnl)
	}

	observ.EquityGauge.Set(s.equity[len(s.equity)-1])
	observ.DrawdownGauge.Set(s.currentDrawdownLocked())
}

// RegisterTradeResult arms the cooldown after a realized loss. Winning and
// break-even trades leave the counter untouched.
func (s *State) RegisterTradeResult(pnl float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pnl < 0 {
		s.cooldown = s.cfg.CooldownTicks
	}
}

// CurrentDrawdown is the peak-to-current decline of the PnL curve, always
// <= 0. An empty curve reports 0.
func (s *State) CurrentDrawdown() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDrawdownLocked()
}

func (s *State) currentDrawdownLocked() float64 {
	if len(s.equity) == 0 {
		return 0
	}
	peak := math.Inf(-1)
	minGap := math.Inf(1)
	for _, eq := range s.equity {
		if eq > peak {
			peak = eq
		}
		if gap := eq - peak; gap < minGap {
			minGap = gap
		}
	}
	return minGap
}

// LatestEquity returns the last point of the curve, or 0 when empty.
func (s *State) LatestEquity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.equity) == 0 {
		return 0
	}
	return s.equity[len(s.equity)-1]
}

// EquityCurve returns a copy of the curve.
func (s *State) EquityCurve() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.equity))
	copy(out, s.equity)
	return out
}

// CooldownRemaining reports the ticks left before trading resumes.
func (s *State) CooldownRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldown
}
