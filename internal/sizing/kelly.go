// Package sizing converts a win probability into a capped Kelly fraction of
// deployable capital.
package sizing

import "fmt"

// Preset selects the Kelly calibration. Both coexist in the domain:
// conservative trading halves raw Kelly and allows up to 50% of deployable
// capital; the generic preset leaves Kelly unscaled but caps at 25%.
type Preset string

const (
	PresetConservative Preset = "conservative"
	PresetGeneric      Preset = "generic"
)

// DefaultWinLossRatio is the assumed payoff ratio when none is configured.
const DefaultWinLossRatio = 2.0

// Sizer computes position fractions from confidence.
type Sizer struct {
	winLossRatio float64
	preset       Preset
}

// New builds a sizer. An unknown preset is a configuration error.
func New(winLossRatio float64, preset Preset) (Sizer, error) {
	if winLossRatio <= 0 {
		winLossRatio = DefaultWinLossRatio
	}
	switch preset {
	case PresetConservative, PresetGeneric:
	case "":
		preset = PresetConservative
	default:
		return Sizer{}, fmt.Errorf("unknown sizing preset %q", preset)
	}
	return Sizer{winLossRatio: winLossRatio, preset: preset}, nil
}

// Fraction returns the capped Kelly fraction for win probability p:
// kelly = p - (1-p)/ratio, then scaled and clamped per the preset. The
// result is monotonically non-decreasing in p and never leaves the preset's
// range.
func (s Sizer) Fraction(p float64) float64 {
	kelly := p - (1-p)/s.winLossRatio
	switch s.preset {
	case PresetGeneric:
		return clamp(kelly, 0, 0.25)
	default:
		return clamp(kelly*0.5, 0, 0.5)
	}
}

// Notional converts confidence into the amount to invest: the Kelly fraction
// of current capital, capped at the per-position deployable limit. The cap is
// the caller's min(cash, initial capital x max position fraction).
func (s Sizer) Notional(p, capital, cap float64) float64 {
	if capital <= 0 || cap <= 0 {
		return 0
	}
	amount := s.Fraction(p) * capital
	if amount > cap {
		amount = cap
	}
	return amount
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
