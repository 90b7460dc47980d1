// Package portfolio owns cash, open positions, and the append-only trade
// ledger. All mutation goes through the Manager, which serializes access so
// concurrent symbol evaluation cannot break the cash or position-count
// invariants.
package portfolio

import (
	"strings"
	"sync"
	"time"

	"github.com/Rajchodisetti/consensus-trader/internal/observ"
)

// Trade actions recorded in the ledger.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Position is one open holding. Long-only accumulation: quantity is unsigned,
// created on first buy, averaged on additional buys, removed on full
// liquidation.
type Position struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	AvgEntryPrice float64   `json:"avg_entry_price"`
	LastMark      float64   `json:"last_mark"`
	OpenedAt      time.Time `json:"opened_at"`
}

// TradeRecord is a write-once ledger entry.
type TradeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason"`
}

// Stats is the reporting view of the portfolio. Drawdown here is
// value-based and floored at zero; it is a different quantity from the risk
// package's curve-based (non-positive) drawdown and the two must not be
// conflated.
type Stats struct {
	TotalValue    float64 `json:"total_value"`
	Cash          float64 `json:"cash"`
	PnL           float64 `json:"pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
	PositionCount int     `json:"positions_count"`
	Drawdown      float64 `json:"drawdown"`
}

// Config sets the immutable capital base and position limits.
type Config struct {
	InitialCapital      float64 `yaml:"initial_capital" json:"initial_capital"`
	MaxPositions        int     `yaml:"max_positions" json:"max_positions"`
	MaxPositionFraction float64 `yaml:"max_position_fraction" json:"max_position_fraction"`
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{InitialCapital: 100000, MaxPositions: 3, MaxPositionFraction: 0.3}
}

// Manager is the single shared owner of portfolio state.
type Manager struct {
	mu        sync.RWMutex
	cfg       Config
	cash      float64
	positions map[string]*Position
	history   []TradeRecord
	version   int64
}

// NewManager builds a portfolio with full cash and no positions. Zero config
// fields take defaults.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = def.InitialCapital
	}
	if cfg.MaxPositions == 0 {
		cfg.MaxPositions = def.MaxPositions
	}
	if cfg.MaxPositionFraction == 0 {
		cfg.MaxPositionFraction = def.MaxPositionFraction
	}
	return &Manager{
		cfg:       cfg,
		cash:      cfg.InitialCapital,
		positions: make(map[string]*Position),
	}
}

// CanOpenNewPosition gates fresh entries: false when the position count is at
// the limit, the proposed amount exceeds the per-position capital fraction,
// or the symbol is already held. Held symbols are never resized through this
// path (no pyramiding via the decision loop).
func (m *Manager) CanOpenNewPosition(symbol string, proposedAmount float64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.positions) >= m.cfg.MaxPositions {
		return false
	}
	if proposedAmount > m.cfg.InitialCapital*m.cfg.MaxPositionFraction {
		return false
	}
	if _, held := m.positions[normalize(symbol)]; held {
		return false
	}
	return true
}

// AvailableCapital is the deployable amount for one trade:
// min(current cash, initial capital x max position fraction).
func (m *Manager) AvailableCapital() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cap := m.cfg.InitialCapital * m.cfg.MaxPositionFraction
	if m.cash < cap {
		return m.cash
	}
	return cap
}

// UpdatePosition applies a fill. A buy that would overdraw cash is skipped
// (no partial fill) and reported as not applied; it is a skip condition, not
// an error. Sells reduce or close; selling more than held liquidates the
// position. Applied fills append to the ledger.
func (m *Manager) UpdatePosition(symbol, action string, quantity, price float64, ts time.Time, reason string) bool {
	if quantity <= 0 || price <= 0 {
		return false
	}
	symbol = normalize(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch strings.ToUpper(action) {
	case ActionBuy:
		cost := quantity * price
		if cost > m.cash {
			observ.TradesSkipped.WithLabelValues("insufficient_cash").Inc()
			return false
		}
		if pos, ok := m.positions[symbol]; ok {
			total := pos.Quantity + quantity
			pos.AvgEntryPrice = (pos.Quantity*pos.AvgEntryPrice + quantity*price) / total
			pos.Quantity = total
			pos.LastMark = price
		} else {
			m.positions[symbol] = &Position{
				Symbol:        symbol,
				Quantity:      quantity,
				AvgEntryPrice: price,
				LastMark:      price,
				OpenedAt:      ts,
			}
		}
		m.cash -= cost

	case ActionSell:
		pos, ok := m.positions[symbol]
		if !ok {
			observ.TradesSkipped.WithLabelValues("no_position").Inc()
			return false
		}
		if quantity > pos.Quantity {
			quantity = pos.Quantity
		}
		m.cash += quantity * price
		pos.Quantity -= quantity
		pos.LastMark = price
		if pos.Quantity == 0 {
			delete(m.positions, symbol)
		}

	default:
		return false
	}

	m.history = append(m.history, TradeRecord{
		Timestamp: ts,
		Symbol:    symbol,
		Action:    strings.ToUpper(action),
		Quantity:  quantity,
		Price:     price,
		Reason:    reason,
	})
	observ.TradesExecuted.WithLabelValues(strings.ToUpper(action)).Inc()
	return true
}

// MarkToMarket records the latest mark price for an open position.
func (m *Manager) MarkToMarket(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pos, ok := m.positions[normalize(symbol)]; ok && price > 0 {
		pos.LastMark = price
	}
}

// Value is cash plus positions at the given mark prices, falling back to
// each position's last recorded mark when a price is unavailable.
func (m *Manager) Value(marks map[string]float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valueLocked(marks)
}

func (m *Manager) valueLocked(marks map[string]float64) float64 {
	total := m.cash
	for symbol, pos := range m.positions {
		mark, ok := marks[symbol]
		if !ok {
			mark = pos.LastMark
		}
		total += pos.Quantity * mark
	}
	return total
}

// GetStats computes the reporting view at the given marks.
func (m *Manager) GetStats(marks map[string]float64) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value := m.valueLocked(marks)
	pnl := value - m.cfg.InitialCapital
	dd := (m.cfg.InitialCapital - value) / m.cfg.InitialCapital
	if dd < 0 {
		dd = 0
	}

	observ.PortfolioValueGauge.Set(value)

	return Stats{
		TotalValue:    value,
		Cash:          m.cash,
		PnL:           pnl,
		PnLPercent:    pnl / m.cfg.InitialCapital * 100,
		PositionCount: len(m.positions),
		Drawdown:      dd,
	}
}

// Cash returns current cash. Never negative: overdrawing buys are rejected.
func (m *Manager) Cash() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash
}

// InitialCapital returns the immutable capital base.
func (m *Manager) InitialCapital() float64 {
	return m.cfg.InitialCapital
}

// GetPosition returns a copy of the position for symbol.
func (m *Manager) GetPosition(symbol string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[normalize(symbol)]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns a copy of all open positions.
func (m *Manager) Positions() map[string]Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Position, len(m.positions))
	for s, p := range m.positions {
		out[s] = *p
	}
	return out
}

// History returns a copy of the trade ledger.
func (m *Manager) History() []TradeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TradeRecord, len(m.history))
	copy(out, m.history)
	return out
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
