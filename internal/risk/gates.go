package risk

import (
	"math"
)

// Gate names, stable identifiers for logs and metrics.
const (
	GateVolatility = "volatility"
	GateDrawdown   = "drawdown"
	GateCooldown   = "cooldown"
)

// GateResult reports which gates vetoed this tick.
type GateResult struct {
	Allowed bool     `json:"allowed"`
	Blocked []string `json:"blocked,omitempty"`
}

// CheckGates evaluates the volatility, drawdown, and cooldown gates in that
// order. Every gate is evaluated even after a veto so the cooldown counter
// decrements once per tick regardless of the other gates. A veto downgrades
// the decision to flat; it never force-reverses a trade.
func (s *State) CheckGates(recentReturns []float64) GateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocked []string

	if !volatilityGate(recentReturns, s.cfg.MaxVolatility) {
		blocked = append(blocked, GateVolatility)
	}
	if !s.drawdownGateLocked() {
		blocked = append(blocked, GateDrawdown)
	}
	if !s.cooldownGateLocked() {
		blocked = append(blocked, GateCooldown)
	}

	return GateResult{Allowed: len(blocked) == 0, Blocked: blocked}
}

// volatilityGate passes on insufficient history; with a full window it passes
// iff the standard deviation of the last 20 realized returns stays under the
// cap.
func volatilityGate(returns []float64, maxVolatility float64) bool {
	if len(returns) < volWindow {
		return true
	}
	window := returns[len(returns)-volWindow:]

	mean := 0.0
	for _, r := range window {
		mean += r
	}
	mean /= float64(len(window))

	var ss float64
	for _, r := range window {
		d := r - mean
		ss += d * d
	}
	vol := math.Sqrt(ss / float64(len(window)))

	return vol <= maxVolatility
}

func (s *State) drawdownGateLocked() bool {
	if len(s.equity) < minEquityPoints {
		return true
	}
	return math.Abs(s.currentDrawdownLocked()) <= s.cfg.MaxDrawdown
}

// cooldownGateLocked blocks while the counter is armed; each failing check
// burns one tick off the counter.
func (s *State) cooldownGateLocked() bool {
	if s.cooldown > 0 {
		s.cooldown--
		return false
	}
	return true
}
