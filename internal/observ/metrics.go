package observ

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConsensusDecisions counts nonzero consensus outcomes by direction.
	ConsensusDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_decisions_total",
			Help: "Nonzero consensus decisions by direction (long/short)",
		},
		[]string{"direction"},
	)

	// GateBlocks counts risk-gate vetoes by gate name.
	GateBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_blocks_total",
			Help: "Consensus decisions downgraded to flat by a risk gate",
		},
		[]string{"gate"},
	)

	// TradesExecuted counts fills applied to the portfolio.
	TradesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_executed_total",
			Help: "Trades applied to the portfolio by action",
		},
		[]string{"action"},
	)

	// TradesSkipped counts trade intents that were dropped before execution.
	TradesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_skipped_total",
			Help: "Trade intents dropped before execution by reason",
		},
		[]string{"reason"},
	)

	// SymbolErrors counts per-symbol evaluation failures in the live loop.
	SymbolErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbol_evaluation_errors_total",
			Help: "Per-symbol evaluation failures (tick treated as no opportunity)",
		},
		[]string{"symbol"},
	)

	// EquityGauge is the cumulative realized PnL curve's latest point.
	EquityGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equity_cumulative_pnl",
		Help: "Latest point of the cumulative realized PnL curve",
	})

	// DrawdownGauge is the curve-based drawdown (always <= 0).
	DrawdownGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equity_drawdown",
		Help: "Peak-to-current drawdown of the PnL curve (non-positive)",
	})

	// PortfolioValueGauge is cash plus marked position value.
	PortfolioValueGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_value",
		Help: "Portfolio value: cash plus positions at mark prices",
	})
)

var startTime = time.Now()

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HealthHandler reports liveness and uptime.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"uptime": time.Since(startTime).String(),
		})
	})
}

// Serve runs the metrics/health endpoints until the listener fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.Handle("/healthz", HealthHandler())
	return http.ListenAndServe(addr, mux)
}
