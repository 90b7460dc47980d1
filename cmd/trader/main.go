// Command trader runs the consensus decision pipeline, either as a CSV
// backtest or as a scheduled live loop against a quote feed.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/consensus-trader/internal/config"
	"github.com/Rajchodisetti/consensus-trader/internal/engine"
	"github.com/Rajchodisetti/consensus-trader/internal/observ"
	"github.com/Rajchodisetti/consensus-trader/internal/portfolio"
	"github.com/Rajchodisetti/consensus-trader/internal/risk"
	"github.com/Rajchodisetti/consensus-trader/internal/signal"
	"github.com/Rajchodisetti/consensus-trader/internal/sizing"
)

var (
	flagConfig string
	flagPretty bool

	cfg config.Root
	log zerolog.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "trader",
		Short: "Consensus-gated risk-managed decision and portfolio engine",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if flagConfig != "" {
				cfg, err = config.Load(flagConfig)
				if err != nil {
					return err
				}
			} else {
				cfg = config.Default()
			}
			log = observ.NewLogger(cfg.LogLevel, flagPretty)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	root.PersistentFlags().BoolVar(&flagPretty, "pretty", false, "human-readable console logging")

	root.AddCommand(backtestCmd())
	root.AddCommand(liveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// The helpers below translate the loaded configuration into per-component
// configs. Backtests construct fresh state from them; live mode hands them to
// the checkpoint loaders instead.

func engineConfig() engine.Config {
	return engine.Config{
		Thresholds: signal.Thresholds{
			Margin:         cfg.Signals.Margin,
			SentimentLong:  cfg.Signals.SentimentLong,
			SentimentShort: cfg.Signals.SentimentShort,
		},
		UseSentimentVeto: !cfg.Signals.IgnoreSentiment,
	}
}

func riskConfig() risk.Config {
	return risk.Config{
		MaxVolatility: cfg.Risk.MaxVolatility,
		MaxDrawdown:   cfg.Risk.MaxDrawdown,
		CooldownTicks: cfg.Risk.CooldownTicks,
	}
}

func portfolioConfig() portfolio.Config {
	return portfolio.Config{
		InitialCapital:      cfg.Portfolio.InitialCapital,
		MaxPositions:        cfg.Portfolio.MaxPositions,
		MaxPositionFraction: cfg.Portfolio.MaxPositionFraction,
	}
}

func newSizer() (sizing.Sizer, error) {
	return sizing.New(cfg.Sizing.WinLossRatio, sizing.Preset(cfg.Sizing.Preset))
}
