package store

import "time"

// Trade is one append-only ledger row. Rows are written once and never
// updated.
type Trade struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Symbol    string    `gorm:"index;not null" json:"symbol"`
	Action    string    `gorm:"not null" json:"action"` // BUY or SELL
	Quantity  float64   `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"not null" json:"price"`
	Reason    string    `json:"reason"`
}

// DecisionLog is the per-tick audit row for downstream reporting.
type DecisionLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
	Symbol          string    `gorm:"index;not null" json:"symbol"`
	DecisionID      string    `json:"decision_id"`
	XGBSignal       int       `json:"xgb_signal"`
	PPOSignal       int       `json:"ppo_signal"`
	SentimentSignal int       `json:"sentiment_signal"`
	Position        int       `json:"position"`
	Equity          float64   `json:"equity"`
	Drawdown        float64   `json:"drawdown"`
	BlockedGates    string    `json:"blocked_gates"` // comma-joined gate names, empty when clear
}

// PortfolioSnapshot is a periodic valuation row.
type PortfolioSnapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TotalValue     float64 `json:"total_value"`
	Cash           float64 `json:"cash"`
	PositionsCount int     `json:"positions_count"`
	PositionsJSON  string  `gorm:"type:text" json:"positions_json"`
}
