package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"TradeDeck/internal/analysis"
	"TradeDeck/internal/notifier"
)

// HandleCommand processes a text command and returns a reply. Text that is
// not a command is posted to the chat and gets no direct reply.
func (d *Dashboard) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/analyze":
		p, err := d.Analyze(ctx)
		if errors.Is(err, analysis.ErrAnalysisInProgress) {
			return "An analysis is already running."
		}
		if err != nil {
			return fmt.Sprintf("Analysis failed: %v", err)
		}
		return analysis.Summary(d.store.State().Stocks.Selected.Symbol, p)

	case "/stock":
		if len(args) != 1 {
			return "Usage: /stock SYMBOL"
		}
		if err := d.SelectStock(ctx, args[0]); err != nil {
			return fmt.Sprintf("Unknown stock %s. Available: %s", args[0], d.stockList())
		}
		s := d.store.State().Stocks.Selected
		return fmt.Sprintf("Selected %s (%s)", s.Symbol, s.Name)

	case "/timeframe":
		if len(args) != 1 {
			return "Usage: /timeframe LABEL"
		}
		if err := d.SelectTimeframe(ctx, args[0]); err != nil {
			return fmt.Sprintf("Unknown timeframe %s. Available: %s", args[0], d.timeframeList())
		}
		return fmt.Sprintf("Timeframe set to %s", d.store.State().Timeframe.Selected.Label)

	case "/status":
		return notifier.FormatStatus(d.status())

	case "/help", "/start":
		return notifier.HelpText
	}

	if strings.HasPrefix(cmd, "/") {
		return notifier.HelpText
	}
	_ = d.SendChat(ctx, text)
	return ""
}

func (d *Dashboard) status() notifier.Status {
	st := d.store.State()
	return notifier.Status{
		Symbol:     st.Stocks.Meta.Symbol,
		Price:      st.Stocks.Meta.Price,
		Change:     st.Stocks.Meta.Change,
		Timeframe:  st.Timeframe.Selected.Label,
		Indicators: st.Indicators.Selected,
		Bars:       len(st.Stocks.ChartData),
		Analyzing:  st.Analysis.IsAnalyzing,
		Prediction: st.Analysis.Prediction,
	}
}

func (d *Dashboard) stockList() string {
	var syms []string
	for _, s := range d.store.State().Stocks.Available {
		syms = append(syms, s.Symbol)
	}
	return strings.Join(syms, ", ")
}

func (d *Dashboard) timeframeList() string {
	var labels []string
	for _, tf := range d.store.State().Timeframe.Available {
		labels = append(labels, tf.Label)
	}
	return strings.Join(labels, ", ")
}
