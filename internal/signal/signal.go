package signal

import (
	"github.com/Rajchodisetti/consensus-trader/internal/models"
)

// Signal is a ternary direction: -1 short, 0 flat, +1 long. Any other value
// is a programming error, not a domain value.
type Signal int

const (
	Short Signal = -1
	Flat  Signal = 0
	Long  Signal = 1
)

// Default thresholds, tuned against the upstream model calibrations.
const (
	DefaultMargin  = 0.1  // probability deviation from 0.5 for a directional call
	SentimentLong  = 0.10 // score above this maps to +1
	SentimentShort = -0.10
)

// Set is the ternary signal triple derived from one observation's model
// outputs. It is derived state: persisted only in audit and trade logs.
type Set struct {
	XGB       Signal `json:"xgb_signal"`
	PPO       Signal `json:"ppo_signal"`
	Sentiment Signal `json:"sentiment_signal"`
}

// Thresholds carries the mapper configuration.
type Thresholds struct {
	Margin         float64
	SentimentLong  float64
	SentimentShort float64
}

// DefaultThresholds returns the standard mapper configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{Margin: DefaultMargin, SentimentLong: SentimentLong, SentimentShort: SentimentShort}
}

// FromProbability maps a classifier probability to a direction. The call is
// directional only when the probability clears 0.5 by at least margin.
func FromProbability(p, margin float64) Signal {
	switch {
	case p >= 0.5+margin:
		return Long
	case p <= 0.5-margin:
		return Short
	}
	return Flat
}

// FromAction maps the discrete policy action to a direction.
func FromAction(a models.Action) Signal {
	switch a {
	case models.ActionLong:
		return Long
	case models.ActionShort:
		return Short
	}
	return Flat
}

// FromSentiment maps a sentiment score to a direction. A missing row (ok ==
// false) maps to +1: a neutral-positive veto input that never blocks on its
// own. This default is deliberate and matches the upstream system exactly.
func FromSentiment(score float64, ok bool, th Thresholds) Signal {
	if !ok {
		return Long
	}
	switch {
	case score > th.SentimentLong:
		return Long
	case score < th.SentimentShort:
		return Short
	}
	return Flat
}

// Derive maps a full model output bundle to a signal set.
func Derive(out models.Outputs, th Thresholds) Set {
	return Set{
		XGB:       FromProbability(out.Probability, th.Margin),
		PPO:       FromAction(out.Action),
		Sentiment: FromSentiment(out.Sentiment, out.HasSentiment, th),
	}
}
