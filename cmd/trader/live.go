package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/consensus-trader/internal/engine"
	"github.com/Rajchodisetti/consensus-trader/internal/marketdata"
	"github.com/Rajchodisetti/consensus-trader/internal/models"
	"github.com/Rajchodisetti/consensus-trader/internal/observ"
	"github.com/Rajchodisetti/consensus-trader/internal/portfolio"
	"github.com/Rajchodisetti/consensus-trader/internal/risk"
	"github.com/Rajchodisetti/consensus-trader/internal/store"
)

func liveCmd() *cobra.Command {
	var simVolatility float64

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the scheduled multi-symbol decision loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(cfg.Live.Symbols) == 0 {
				cfg.Live.Symbols = []string{"AAPL", "MSFT", "GOOG"}
			}

			if err := os.MkdirAll(cfg.Live.StateDir, 0755); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Live.DBPath), 0755); err != nil {
				return err
			}

			sizer, err := newSizer()
			if err != nil {
				return err
			}

			// Resume from checkpoints when present; fresh state otherwise.
			riskState, err := risk.LoadFile(filepath.Join(cfg.Live.StateDir, "risk.json"), riskConfig())
			if err != nil {
				return err
			}
			pf, err := portfolio.LoadFile(filepath.Join(cfg.Live.StateDir, "portfolio.json"), portfolioConfig())
			if err != nil {
				return err
			}

			db, err := store.NewDatabase(cfg.Live.DBPath)
			if err != nil {
				return err
			}
			repo := store.NewRepository(db)

			sentiment := &models.StaticSentiment{}
			if cfg.Live.SentimentPath != "" {
				sentiment, err = models.LoadSentimentCSV(cfg.Live.SentimentPath)
				if err != nil {
					return err
				}
			}

			client := models.Client{
				Prob:      models.WithBreaker(models.RuleProbability{}),
				Policy:    models.WithPolicyBreaker(models.RulePolicy{}),
				Sentiment: models.WithSentimentBreaker(sentiment),
			}

			go func() {
				log.Info().Str("addr", cfg.Live.MetricsAddr).Msg("metrics endpoint up")
				if err := observ.Serve(cfg.Live.MetricsAddr); err != nil {
					log.Error().Err(err).Msg("metrics endpoint failed")
				}
			}()

			live := engine.NewLive(engineConfig(), engine.LiveConfig{
				Symbols:        cfg.Live.Symbols,
				UpdateInterval: time.Duration(cfg.Live.UpdateIntervalSec) * time.Second,
				HistoryBars:    cfg.Live.HistoryBars,
				QuoteRate:      rate.Limit(float64(cfg.Live.QuoteRatePerMin) / 60.0),
				StateDir:       cfg.Live.StateDir,
			}, client, marketdata.NewSimProvider(simVolatility), riskState, sizer, pf, repo, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := live.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&simVolatility, "sim-volatility", 0.02, "per-tick volatility of the simulated quote walk")
	return cmd
}
