package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"TradeDeck/internal/analysis"
	"TradeDeck/internal/model"
	"TradeDeck/internal/view"
)

var timeframeFlag string

// selection resolves the symbol argument and the timeframe flag against the
// catalog.
func selection(args []string) (model.StockRef, model.Timeframe, error) {
	symbol := model.Stocks()[0].Symbol
	if len(args) > 0 {
		symbol = strings.ToUpper(args[0])
	}
	stock, ok := model.FindStock(model.Stocks(), symbol)
	if !ok {
		return model.StockRef{}, model.Timeframe{}, fmt.Errorf("unknown stock %q", symbol)
	}
	tf, ok := model.FindTimeframe(model.Timeframes(), timeframeFlag)
	if !ok {
		return model.StockRef{}, model.Timeframe{}, fmt.Errorf("unknown timeframe %q", timeframeFlag)
	}
	return stock, tf, nil
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [SYMBOL]",
	Short: "Fetch the chart series for a stock and print the quote",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stock, tf, err := selection(args)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Gateway.Timeout*time.Duration(cfg.Gateway.MaxRetries+1))
		defer cancel()
		series, err := a.col.Load(ctx, stock, tf)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"symbol":    series.Symbol,
			"timeframe": tf.Label,
			"bars":      len(series.Bars),
			"quote":     series.Meta,
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [SYMBOL]",
	Short: "Run one trend analysis and print the prediction",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stock, tf, err := selection(args)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		sim := analysis.NewSimulator(a.col, nil)
		p, err := sim.Predict(cmd.Context(), stock, tf)
		if err != nil {
			return err
		}
		fmt.Println(analysis.Summary(stock.Symbol, p))
		return nil
	},
}

var panelsCmd = &cobra.Command{
	Use:   "panels [SYMBOL]",
	Short: "Load a stock and render the dashboard panels in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stock, tf, err := selection(args)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		a.dash.Start()
		ctx := cmd.Context()
		if err := a.svc.SelectStock(ctx, stock.Symbol); err != nil {
			return err
		}
		if err := a.svc.SelectTimeframe(ctx, tf.Label); err != nil {
			return err
		}
		a.dash.Wait()
		fmt.Println(view.Render(view.Build(a.svc.State())))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{fetchCmd, analyzeCmd, panelsCmd} {
		c.Flags().StringVarP(&timeframeFlag, "timeframe", "t", "1D", "timeframe label or interval code")
	}
}
