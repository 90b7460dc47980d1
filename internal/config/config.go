package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Signals struct {
	Margin          float64 `yaml:"margin"`           // deviation from 0.5 required for a directional XGB signal
	SentimentLong   float64 `yaml:"sentiment_long"`   // score above this maps to +1
	SentimentShort  float64 `yaml:"sentiment_short"`  // score below this maps to -1
	IgnoreSentiment bool    `yaml:"ignore_sentiment"` // true drops to the two-signal consensus form
}

type Risk struct {
	MaxVolatility float64 `yaml:"max_volatility"`
	MaxDrawdown   float64 `yaml:"max_drawdown"`
	CooldownTicks int     `yaml:"cooldown_ticks"`
}

type Sizing struct {
	WinLossRatio float64 `yaml:"win_loss_ratio"`
	Preset       string  `yaml:"preset"` // conservative | generic
}

type Portfolio struct {
	InitialCapital      float64 `yaml:"initial_capital"`
	MaxPositions        int     `yaml:"max_positions"`
	MaxPositionFraction float64 `yaml:"max_position_fraction"`
}

type Live struct {
	Symbols           []string `yaml:"symbols"`
	UpdateIntervalSec int      `yaml:"update_interval_seconds"`
	HistoryBars       int      `yaml:"history_bars"`
	QuoteRatePerMin   int      `yaml:"quote_rate_per_minute"`
	SentimentPath     string   `yaml:"sentiment_path"` // optional (date,symbol,sentiment_score) CSV
	DBPath            string   `yaml:"db_path"`
	StateDir          string   `yaml:"state_dir"`
	MetricsAddr       string   `yaml:"metrics_addr"`
}

type Root struct {
	LogLevel  string    `yaml:"log_level"`
	Signals   Signals   `yaml:"signals"`
	Risk      Risk      `yaml:"risk"`
	Sizing    Sizing    `yaml:"sizing"`
	Portfolio Portfolio `yaml:"portfolio"`
	Live      Live      `yaml:"live"`
}

// Default returns the configuration used when no file is supplied.
func Default() Root {
	var c Root
	c.applyDefaults()
	return c
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Root) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Signals.Margin == 0 {
		c.Signals.Margin = 0.1
	}
	if c.Signals.SentimentLong == 0 {
		c.Signals.SentimentLong = 0.10
	}
	if c.Signals.SentimentShort == 0 {
		c.Signals.SentimentShort = -0.10
	}
	if c.Risk.MaxVolatility == 0 {
		c.Risk.MaxVolatility = 0.03
	}
	if c.Risk.MaxDrawdown == 0 {
		c.Risk.MaxDrawdown = 0.25
	}
	if c.Risk.CooldownTicks == 0 {
		c.Risk.CooldownTicks = 5
	}
	if c.Sizing.WinLossRatio == 0 {
		c.Sizing.WinLossRatio = 2.0
	}
	if c.Sizing.Preset == "" {
		c.Sizing.Preset = "conservative"
	}
	if c.Portfolio.InitialCapital == 0 {
		c.Portfolio.InitialCapital = 100000
	}
	if c.Portfolio.MaxPositions == 0 {
		c.Portfolio.MaxPositions = 3
	}
	if c.Portfolio.MaxPositionFraction == 0 {
		c.Portfolio.MaxPositionFraction = 0.3
	}
	if c.Live.UpdateIntervalSec == 0 {
		c.Live.UpdateIntervalSec = 60
	}
	if c.Live.HistoryBars == 0 {
		c.Live.HistoryBars = 300
	}
	if c.Live.QuoteRatePerMin == 0 {
		c.Live.QuoteRatePerMin = 60
	}
	if c.Live.DBPath == "" {
		c.Live.DBPath = "data/trader.db"
	}
	if c.Live.StateDir == "" {
		c.Live.StateDir = "data/state"
	}
	if c.Live.MetricsAddr == "" {
		c.Live.MetricsAddr = ":9090"
	}
}
