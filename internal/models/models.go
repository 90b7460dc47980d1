package models

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Action is the discrete policy output: short, flat, or long.
type Action int

const (
	ActionShort Action = 0
	ActionFlat  Action = 1
	ActionLong  Action = 2
)

func (a Action) Valid() bool {
	return a == ActionShort || a == ActionFlat || a == ActionLong
}

func (a Action) String() string {
	switch a {
	case ActionShort:
		return "short"
	case ActionFlat:
		return "flat"
	case ActionLong:
		return "long"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Outputs is the tagged, validated bundle of external model results for one
// (symbol, timestamp). The engine consumes only this; model internals stay
// outside the core.
type Outputs struct {
	Probability  float64 // classifier up-probability in [0,1]
	Action       Action  // policy action
	Sentiment    float64 // sentiment score, roughly [-1,1]
	HasSentiment bool    // false when no sentiment row exists for (date, symbol)
}

// Validate enforces bounds at the consumption boundary so the consensus logic
// never sees an out-of-range value.
func (o Outputs) Validate() error {
	if math.IsNaN(o.Probability) || o.Probability < 0 || o.Probability > 1 {
		return fmt.Errorf("probability %v outside [0,1]", o.Probability)
	}
	if !o.Action.Valid() {
		return fmt.Errorf("action %d outside {0,1,2}", int(o.Action))
	}
	if o.HasSentiment && (math.IsNaN(o.Sentiment) || math.IsInf(o.Sentiment, 0)) {
		return fmt.Errorf("non-finite sentiment score")
	}
	return nil
}

// ProbabilityModel returns a directional up-probability for a feature vector.
// Implementations may be a trained classifier, a rule table, or a test stub.
type ProbabilityModel interface {
	Probability(ctx context.Context, symbol string, features []float64) (float64, error)
}

// PolicyModel returns a discrete action for a feature vector.
type PolicyModel interface {
	Action(ctx context.Context, symbol string, features []float64) (Action, error)
}

// SentimentSource returns a sentiment score for (symbol, timestamp). The
// second return is false when no row exists for that date and symbol.
type SentimentSource interface {
	Score(ctx context.Context, symbol string, ts time.Time) (float64, bool, error)
}

// Client bundles the three external collaborators.
type Client struct {
	Prob      ProbabilityModel
	Policy    PolicyModel
	Sentiment SentimentSource
}

// Fetch gathers and validates all model outputs for one observation.
func (c Client) Fetch(ctx context.Context, symbol string, features []float64, ts time.Time) (Outputs, error) {
	p, err := c.Prob.Probability(ctx, symbol, features)
	if err != nil {
		return Outputs{}, fmt.Errorf("probability model: %w", err)
	}
	a, err := c.Policy.Action(ctx, symbol, features)
	if err != nil {
		return Outputs{}, fmt.Errorf("policy model: %w", err)
	}

	out := Outputs{Probability: p, Action: a}
	if c.Sentiment != nil {
		score, ok, err := c.Sentiment.Score(ctx, symbol, ts)
		if err != nil {
			return Outputs{}, fmt.Errorf("sentiment source: %w", err)
		}
		out.Sentiment, out.HasSentiment = score, ok
	}

	if err := out.Validate(); err != nil {
		return Outputs{}, fmt.Errorf("model outputs for %s: %w", symbol, err)
	}
	return out, nil
}
