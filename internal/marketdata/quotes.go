package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// QuoteProvider returns the latest tradeable price for a symbol. The live
// engine does not care whether the implementation is a broker feed or a sim.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (Bar, error)
}

// SimProvider generates a seeded geometric random walk per symbol so live
// runs are reproducible without a market data subscription.
type SimProvider struct {
	mu         sync.Mutex
	volatility float64
	last       map[string]Bar
	rng        map[string]*rand.Rand
}

// NewSimProvider seeds each symbol independently from its name, so a given
// symbol always replays the same walk.
func NewSimProvider(volatility float64) *SimProvider {
	if volatility <= 0 {
		volatility = 0.02
	}
	return &SimProvider{
		volatility: volatility,
		last:       make(map[string]Bar),
		rng:        make(map[string]*rand.Rand),
	}
}

func (p *SimProvider) Quote(ctx context.Context, symbol string) (Bar, error) {
	select {
	case <-ctx.Done():
		return Bar{}, ctx.Err()
	default:
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Bar{}, fmt.Errorf("empty symbol")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rng, ok := p.rng[symbol]
	if !ok {
		rng = rand.New(rand.NewSource(seedFor(symbol)))
		p.rng[symbol] = rng
	}

	now := time.Now().UTC()
	prev, ok := p.last[symbol]
	if !ok {
		base := 50 + float64(seedFor(symbol)%400)
		prev = Bar{Timestamp: now.Add(-time.Minute), Open: base, High: base, Low: base, Close: base, Volume: 1e6}
	}

	ret := rng.NormFloat64() * p.volatility
	close := prev.Close * math.Exp(ret)
	open := prev.Close
	high := math.Max(open, close) * (1 + rng.Float64()*p.volatility/2)
	low := math.Min(open, close) * (1 - rng.Float64()*p.volatility/2)
	volume := prev.Volume * (0.5 + rng.Float64())

	bar := Bar{Timestamp: now, Open: open, High: high, Low: low, Close: close, Volume: volume}
	p.last[symbol] = bar
	return bar, nil
}

func seedFor(symbol string) int64 {
	var h int64 = 1125899906842597
	for _, c := range symbol {
		h = 31*h + int64(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
