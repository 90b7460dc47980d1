package models

import (
	"context"
	"math"
	"time"
)

// The stubs below stand in for the trained models during backtests and sim
// runs. They are deterministic rule tables over the feature vector, so runs
// replay identically.

// Feature vector positions the stubs read. Kept in sync with
// features.FeatureColumns.
const (
	idxRet1dZ   = 0
	idxMACDZ    = 5
	idxTrendSMA = 10
)

// RuleProbability maps short-term momentum and trend to an up-probability
// through a logistic squash.
type RuleProbability struct{}

func (RuleProbability) Probability(_ context.Context, _ string, features []float64) (float64, error) {
	score := 0.6*features[idxRet1dZ] + 0.3*features[idxMACDZ]
	if features[idxTrendSMA] > 0 {
		score += 0.4
	} else {
		score -= 0.4
	}
	return 1 / (1 + math.Exp(-score)), nil
}

// RulePolicy goes long above-trend with positive momentum, short the inverse,
// flat otherwise.
type RulePolicy struct{}

func (RulePolicy) Action(_ context.Context, _ string, features []float64) (Action, error) {
	switch {
	case features[idxTrendSMA] > 0 && features[idxRet1dZ] > 0:
		return ActionLong, nil
	case features[idxTrendSMA] == 0 && features[idxRet1dZ] < 0:
		return ActionShort, nil
	}
	return ActionFlat, nil
}

// StaticSentiment serves scores from a fixed (date, symbol) table. Lookups
// miss when no row exists, which the signal mapper treats per its default.
type StaticSentiment struct {
	Scores map[string]float64 // key: "2006-01-02|SYMBOL"
}

func sentimentKey(symbol string, ts time.Time) string {
	return ts.UTC().Format("2006-01-02") + "|" + symbol
}

// Set records a score for (date, symbol).
func (s *StaticSentiment) Set(symbol string, ts time.Time, score float64) {
	if s.Scores == nil {
		s.Scores = make(map[string]float64)
	}
	s.Scores[sentimentKey(symbol, ts)] = score
}

func (s *StaticSentiment) Score(_ context.Context, symbol string, ts time.Time) (float64, bool, error) {
	score, ok := s.Scores[sentimentKey(symbol, ts)]
	return score, ok, nil
}
