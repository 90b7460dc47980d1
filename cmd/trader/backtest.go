package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/consensus-trader/internal/engine"
	"github.com/Rajchodisetti/consensus-trader/internal/features"
	"github.com/Rajchodisetti/consensus-trader/internal/marketdata"
	"github.com/Rajchodisetti/consensus-trader/internal/models"
	"github.com/Rajchodisetti/consensus-trader/internal/portfolio"
	"github.com/Rajchodisetti/consensus-trader/internal/risk"
)

func backtestCmd() *cobra.Command {
	var (
		csvPath       string
		symbol        string
		sentimentPath string
		outPath       string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay an OHLCV CSV through the decision pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			series, err := marketdata.LoadCSV(csvPath, symbol)
			if err != nil {
				return err
			}
			frame, err := features.NewFrame(series)
			if err != nil {
				return err
			}

			sizer, err := newSizer()
			if err != nil {
				return err
			}
			riskState := risk.NewState(riskConfig())
			pf := portfolio.NewManager(portfolioConfig())

			// Without a sentiment table every row is a miss, which the signal
			// mapper maps to its non-blocking default.
			sentiment := &models.StaticSentiment{}
			if sentimentPath != "" {
				sentiment, err = models.LoadSentimentCSV(sentimentPath)
				if err != nil {
					return err
				}
			}

			client := models.Client{
				Prob:      models.RuleProbability{},
				Policy:    models.RulePolicy{},
				Sentiment: sentiment,
			}

			bt := engine.NewBacktester(engineConfig(), client, riskState, sizer, pf, log)

			start := time.Now()
			res, err := bt.Run(cmd.Context(), frame)
			if err != nil {
				return err
			}

			log.Info().Str("symbol", frame.Symbol).Int("ticks", res.Ticks).
				Dur("elapsed", time.Since(start)).Msg("backtest complete")

			printSummary(res)

			if outPath != "" {
				if err := writeDecisionLog(res, outPath); err != nil {
					return err
				}
				log.Info().Str("path", outPath).Msg("decision log written")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "data", "", "OHLCV CSV file (timestamp,open,high,low,close,volume)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol the CSV describes")
	cmd.Flags().StringVar(&sentimentPath, "sentiment", "", "sentiment CSV file (date,symbol,sentiment_score)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the per-tick decision log CSV here")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func printSummary(res *engine.Result) {
	winRate := 0.0
	if res.Decisions > 0 {
		winRate = float64(res.Wins) / float64(res.Decisions) * 100
	}
	fmt.Printf("ticks evaluated:    %d\n", res.Ticks)
	fmt.Printf("nonzero decisions:  %d\n", res.Decisions)
	fmt.Printf("win rate:           %.1f%%\n", winRate)
	fmt.Printf("final equity (pnl): %.6f\n", res.FinalEquity)
	fmt.Printf("max drawdown:       %.6f\n", res.MaxDrawdown)
	fmt.Printf("portfolio value:    %.2f\n", res.Stats.TotalValue)
	fmt.Printf("portfolio pnl:      %.2f (%.2f%%)\n", res.Stats.PnL, res.Stats.PnLPercent)
	fmt.Printf("open positions:     %d\n", res.Stats.PositionCount)
	fmt.Printf("trades booked:      %d\n", len(res.Trades))
}

func writeDecisionLog(res *engine.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return res.WriteCSV(f)
}
