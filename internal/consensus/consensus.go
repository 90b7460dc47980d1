// Package consensus implements hard-consensus voting: a trade is taken only
// when every contributing directional signal strictly agrees on a nonzero
// direction. Any disagreement collapses to flat; a trade is never reversed.
package consensus

import (
	"github.com/Rajchodisetti/consensus-trader/internal/signal"
)

// Decision is the consensus output before risk gating: -1 short, 0 flat,
// +1 long.
type Decision int

const (
	DecisionShort Decision = -1
	DecisionFlat  Decision = 0
	DecisionLong  Decision = 1
)

func (d Decision) String() string {
	switch d {
	case DecisionShort:
		return "short"
	case DecisionLong:
		return "long"
	}
	return "flat"
}

// Decide is the two-signal form: trade iff both models agree on a nonzero
// direction.
func Decide(xgb, ppo signal.Signal) Decision {
	if xgb == ppo && xgb != signal.Flat {
		return Decision(xgb)
	}
	return DecisionFlat
}

// DecideWithSentiment is the three-signal form. Sentiment acts as a veto: it
// can suppress a trade the two models agree on, but since unanimity is
// required it can never originate one alone.
func DecideWithSentiment(xgb, ppo, sentiment signal.Signal) Decision {
	if xgb == ppo && ppo == sentiment && xgb != signal.Flat {
		return Decision(xgb)
	}
	return DecisionFlat
}

// FromSet applies the configured form to a full signal set.
func FromSet(s signal.Set, useSentimentVeto bool) Decision {
	if useSentimentVeto {
		return DecideWithSentiment(s.XGB, s.PPO, s.Sentiment)
	}
	return Decide(s.XGB, s.PPO)
}
