package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/consensus-trader/internal/consensus"
	"github.com/Rajchodisetti/consensus-trader/internal/features"
	"github.com/Rajchodisetti/consensus-trader/internal/marketdata"
	"github.com/Rajchodisetti/consensus-trader/internal/models"
	"github.com/Rajchodisetti/consensus-trader/internal/observ"
	"github.com/Rajchodisetti/consensus-trader/internal/portfolio"
	"github.com/Rajchodisetti/consensus-trader/internal/risk"
	"github.com/Rajchodisetti/consensus-trader/internal/sizing"
	"github.com/Rajchodisetti/consensus-trader/internal/store"
)

// LiveConfig tunes the scheduled evaluation loop.
type LiveConfig struct {
	Symbols        []string
	UpdateInterval time.Duration
	HistoryBars    int
	QuoteRate      rate.Limit // quotes per second across all symbols
	StateDir       string
}

// Live runs the decision pipeline on a schedule for many symbols. Symbol
// evaluations run concurrently; the portfolio and risk state serialize their
// own mutation, and a panic or error in one symbol never halts the others.
type Live struct {
	cfg     Config
	liveCfg LiveConfig
	client  models.Client
	quotes  marketdata.QuoteProvider
	risk    *risk.State
	sizer   sizing.Sizer
	pf      *portfolio.Manager
	repo    *store.Repository // nil disables the sqlite ledger
	limiter *rate.Limiter
	log     zerolog.Logger

	mu           sync.Mutex
	series       map[string]*marketdata.Series
	lastDecision map[string]consensus.Decision
	lastClose    map[string]float64
	returns      []float64 // realized per-tick returns for the volatility gate
}

// NewLive wires the live loop.
func NewLive(cfg Config, liveCfg LiveConfig, client models.Client, quotes marketdata.QuoteProvider,
	riskState *risk.State, sizer sizing.Sizer, pf *portfolio.Manager, repo *store.Repository,
	log zerolog.Logger) *Live {
	if liveCfg.UpdateInterval <= 0 {
		liveCfg.UpdateInterval = time.Minute
	}
	if liveCfg.HistoryBars <= 0 {
		liveCfg.HistoryBars = 300
	}
	if liveCfg.QuoteRate <= 0 {
		liveCfg.QuoteRate = 1
	}
	return &Live{
		cfg:          cfg,
		liveCfg:      liveCfg,
		client:       client,
		quotes:       quotes,
		risk:         riskState,
		sizer:        sizer,
		pf:           pf,
		repo:         repo,
		limiter:      rate.NewLimiter(liveCfg.QuoteRate, 1),
		log:          log,
		series:       make(map[string]*marketdata.Series),
		lastDecision: make(map[string]consensus.Decision),
		lastClose:    make(map[string]float64),
	}
}

// Run evaluates all symbols every update interval until the context ends,
// then checkpoints state and returns.
func (l *Live) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.liveCfg.UpdateInterval)
	defer ticker.Stop()

	l.log.Info().Strs("symbols", l.liveCfg.Symbols).
		Dur("interval", l.liveCfg.UpdateInterval).Msg("live loop started")

	for {
		l.runCycle(ctx)

		select {
		case <-ctx.Done():
			if err := l.checkpoint(); err != nil {
				l.log.Error().Err(err).Msg("final checkpoint failed")
			}
			l.log.Info().Msg("live loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Live) runCycle(ctx context.Context) {
	var wg sync.WaitGroup
	for _, symbol := range l.liveCfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					observ.SymbolErrors.WithLabelValues(symbol).Inc()
					l.log.Error().Str("symbol", symbol).Interface("panic", r).
						Msg("symbol evaluation panicked, tick treated as no opportunity")
				}
			}()
			if err := l.evaluateSymbol(ctx, symbol); err != nil {
				observ.SymbolErrors.WithLabelValues(symbol).Inc()
				l.log.Warn().Err(err).Str("symbol", symbol).Msg("symbol tick skipped")
			}
		}(symbol)
	}
	wg.Wait()

	if err := l.checkpoint(); err != nil {
		l.log.Error().Err(err).Msg("checkpoint failed")
	}
}

func (l *Live) evaluateSymbol(ctx context.Context, symbol string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	bar, err := l.quotes.Quote(ctx, symbol)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	frame, prevDecision, prevClose, err := l.appendBar(symbol, bar)
	if err != nil {
		return err
	}

	// Realize the previous cycle's PnL now that this cycle's price is known.
	if prevClose > 0 {
		ret := bar.Close/prevClose - 1
		pnl := float64(prevDecision) * ret
		l.risk.UpdateEquity(pnl)
		if prevDecision != consensus.DecisionFlat {
			l.risk.RegisterTradeResult(pnl)
		}
		l.recordReturn(pnl)
	}

	if frame == nil {
		// Not enough history to produce a valid feature row yet.
		l.setLast(symbol, consensus.DecisionFlat, bar.Close)
		return nil
	}

	t := frame.Len() - 1
	vec := frame.InferenceVector(t)
	ev, err := evaluateTick(ctx, l.cfg, l.client, l.risk, symbol, vec, bar.Timestamp, l.recentReturns())
	if err != nil {
		l.setLast(symbol, consensus.DecisionFlat, bar.Close)
		return err
	}

	switch ev.decision {
	case consensus.DecisionLong:
		l.applyLong(symbol, ev.outputs.Probability, bar.Close, bar.Timestamp)
	case consensus.DecisionShort:
		// Long-only book: a short consensus exits an existing position.
		l.exitPosition(symbol, bar.Close, bar.Timestamp)
	}

	l.pf.MarkToMarket(symbol, bar.Close)
	l.setLast(symbol, ev.decision, bar.Close)

	rec := TickRecord{
		Timestamp:    bar.Timestamp,
		Symbol:       symbol,
		DecisionID:   newDecisionID(),
		Signals:      ev.signals,
		Position:     ev.decision,
		Equity:       l.risk.LatestEquity(),
		Drawdown:     l.risk.CurrentDrawdown(),
		BlockedGates: ev.blocked,
	}
	l.log.Info().Str("symbol", symbol).Int("position", int(rec.Position)).
		Int("xgb", int(rec.Signals.XGB)).Int("ppo", int(rec.Signals.PPO)).
		Int("sentiment", int(rec.Signals.Sentiment)).Strs("blocked", rec.BlockedGates).
		Msg("tick evaluated")

	if l.repo != nil {
		if err := l.repo.SaveDecision(&store.DecisionLog{
			Timestamp:       rec.Timestamp,
			Symbol:          rec.Symbol,
			DecisionID:      rec.DecisionID,
			XGBSignal:       int(rec.Signals.XGB),
			PPOSignal:       int(rec.Signals.PPO),
			SentimentSignal: int(rec.Signals.Sentiment),
			Position:        int(rec.Position),
			Equity:          rec.Equity,
			Drawdown:        rec.Drawdown,
			BlockedGates:    rec.BlockedGatesString(),
		}); err != nil {
			l.log.Warn().Err(err).Str("symbol", symbol).Msg("decision log write failed")
		}
	}
	return nil
}

// appendBar grows the symbol's history and builds a frame once enough bars
// exist for a valid feature row. Returns the previous decision and close so
// the caller can realize PnL.
func (l *Live) appendBar(symbol string, bar marketdata.Bar) (*features.Frame, consensus.Decision, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.series[symbol]
	if !ok {
		s = &marketdata.Series{Symbol: symbol}
		l.series[symbol] = s
	}
	if err := s.Append(bar); err != nil {
		return nil, consensus.DecisionFlat, 0, err
	}
	s.Trim(l.liveCfg.HistoryBars)

	prevDecision := l.lastDecision[symbol]
	prevClose := l.lastClose[symbol]

	frame, err := features.NewFrame(s)
	if err != nil {
		return nil, prevDecision, prevClose, err
	}
	if _, err := frame.FeatureVector(frame.Len() - 1); err != nil {
		// Warmup: rolling statistics not yet defined.
		return nil, prevDecision, prevClose, nil
	}
	return frame, prevDecision, prevClose, nil
}

func (l *Live) applyLong(symbol string, confidence, price float64, ts time.Time) {
	notional := l.sizer.Notional(confidence, l.pf.Cash(), l.pf.AvailableCapital())
	if !l.pf.CanOpenNewPosition(symbol, notional) {
		observ.TradesSkipped.WithLabelValues("portfolio_constraints").Inc()
		return
	}
	shares := math.Floor(notional / price)
	if shares < 1 {
		observ.TradesSkipped.WithLabelValues("below_one_share").Inc()
		return
	}
	if l.pf.UpdatePosition(symbol, portfolio.ActionBuy, shares, price, ts, "consensus_long") {
		l.saveTrade(ts, symbol, portfolio.ActionBuy, shares, price, "consensus_long")
	}
}

func (l *Live) exitPosition(symbol string, price float64, ts time.Time) {
	pos, ok := l.pf.GetPosition(symbol)
	if !ok {
		return
	}
	if l.pf.UpdatePosition(symbol, portfolio.ActionSell, pos.Quantity, price, ts, "consensus_short_exit") {
		l.saveTrade(ts, symbol, portfolio.ActionSell, pos.Quantity, price, "consensus_short_exit")
	}
}

func (l *Live) saveTrade(ts time.Time, symbol, action string, quantity, price float64, reason string) {
	if l.repo == nil {
		return
	}
	if err := l.repo.SaveTrade(&store.Trade{
		Timestamp: ts,
		Symbol:    symbol,
		Action:    action,
		Quantity:  quantity,
		Price:     price,
		Reason:    reason,
	}); err != nil {
		l.log.Warn().Err(err).Str("symbol", symbol).Msg("trade ledger write failed")
	}
}

func (l *Live) recordReturn(pnl float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.returns = append(l.returns, pnl)
	if len(l.returns) > 100 {
		l.returns = l.returns[len(l.returns)-100:]
	}
}

func (l *Live) recentReturns() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.returns))
	copy(out, l.returns)
	return out
}

func (l *Live) setLast(symbol string, d consensus.Decision, close float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastDecision[symbol] = d
	l.lastClose[symbol] = close
}

// checkpoint persists portfolio and risk state, and a valuation snapshot to
// the ledger database.
func (l *Live) checkpoint() error {
	if l.liveCfg.StateDir != "" {
		if err := l.pf.SaveFile(filepath.Join(l.liveCfg.StateDir, "portfolio.json")); err != nil {
			return err
		}
		if err := l.risk.SaveFile(filepath.Join(l.liveCfg.StateDir, "risk.json")); err != nil {
			return err
		}
	}

	marks := l.currentMarks()
	stats := l.pf.GetStats(marks)

	if l.repo != nil {
		positions, err := json.Marshal(l.pf.Positions())
		if err != nil {
			return fmt.Errorf("marshal positions: %w", err)
		}
		if err := l.repo.SaveSnapshot(&store.PortfolioSnapshot{
			TotalValue:     stats.TotalValue,
			Cash:           stats.Cash,
			PositionsCount: stats.PositionCount,
			PositionsJSON:  string(positions),
		}); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	return nil
}

func (l *Live) currentMarks() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	marks := make(map[string]float64, len(l.lastClose))
	for s, c := range l.lastClose {
		marks[s] = c
	}
	return marks
}
