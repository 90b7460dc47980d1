package models

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Circuit breakers wrap the external model clients so a flapping endpoint
// degrades that symbol's tick to "no opportunity" instead of being retried
// on the hot path.

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

type breakerProbability struct {
	inner ProbabilityModel
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker guards a probability model with a circuit breaker.
func WithBreaker(inner ProbabilityModel) ProbabilityModel {
	return &breakerProbability{inner: inner, cb: newBreaker("probability_model")}
}

func (b *breakerProbability) Probability(ctx context.Context, symbol string, features []float64) (float64, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Probability(ctx, symbol, features)
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

type breakerPolicy struct {
	inner PolicyModel
	cb    *gobreaker.CircuitBreaker
}

// WithPolicyBreaker guards a policy model with a circuit breaker.
func WithPolicyBreaker(inner PolicyModel) PolicyModel {
	return &breakerPolicy{inner: inner, cb: newBreaker("policy_model")}
}

func (b *breakerPolicy) Action(ctx context.Context, symbol string, features []float64) (Action, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Action(ctx, symbol, features)
	})
	if err != nil {
		return ActionFlat, err
	}
	return v.(Action), nil
}

type breakerSentiment struct {
	inner SentimentSource
	cb    *gobreaker.CircuitBreaker
}

type sentimentResult struct {
	score float64
	ok    bool
}

// WithSentimentBreaker guards a sentiment source with a circuit breaker.
func WithSentimentBreaker(inner SentimentSource) SentimentSource {
	return &breakerSentiment{inner: inner, cb: newBreaker("sentiment_source")}
}

func (b *breakerSentiment) Score(ctx context.Context, symbol string, ts time.Time) (float64, bool, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		score, ok, err := b.inner.Score(ctx, symbol, ts)
		return sentimentResult{score, ok}, err
	})
	if err != nil {
		return 0, false, err
	}
	r := v.(sentimentResult)
	return r.score, r.ok, nil
}
