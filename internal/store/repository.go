package store

import (
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Trades

func (r *Repository) SaveTrade(trade *Trade) error {
	return r.db.Create(trade).Error
}

func (r *Repository) RecentTrades(limit int) ([]Trade, error) {
	var trades []Trade
	err := r.db.Order("timestamp DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

func (r *Repository) TradeCount() (int64, error) {
	var n int64
	err := r.db.Model(&Trade{}).Count(&n).Error
	return n, err
}

// Decision logs

func (r *Repository) SaveDecision(log *DecisionLog) error {
	return r.db.Create(log).Error
}

func (r *Repository) RecentDecisions(symbol string, limit int) ([]DecisionLog, error) {
	var logs []DecisionLog
	q := r.db.Order("timestamp DESC").Limit(limit)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	err := q.Find(&logs).Error
	return logs, err
}

// Portfolio snapshots

func (r *Repository) SaveSnapshot(snapshot *PortfolioSnapshot) error {
	return r.db.Create(snapshot).Error
}

func (r *Repository) LatestSnapshot() (*PortfolioSnapshot, error) {
	var snapshot PortfolioSnapshot
	err := r.db.Order("created_at DESC").First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
