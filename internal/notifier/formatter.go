package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TradeDeck/internal/model"
)

func trendIcon(t model.Trend) string {
	if t == model.TrendBullish {
		return "📈"
	}
	return "📉"
}

// FormatAnalysis formats a finished analysis into a Telegram message.
func FormatAnalysis(symbol string, p *model.Prediction, at time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>TradeDeck analysis</b> | %s\n\n", trendIcon(p.Trend), html.EscapeString(symbol)))
	b.WriteString(fmt.Sprintf("Outlook: <b>%s</b> (%s%% confidence)\n", strings.ToUpper(string(p.Trend)), p.Confidence))
	b.WriteString(fmt.Sprintf("Target: $%s within %s\n", p.TargetPrice, html.EscapeString(p.Timeframe)))
	b.WriteString(fmt.Sprintf("Support: $%s | Resistance: $%s\n", p.SupportLevel, p.ResistanceLevel))
	if ind := p.Indicators; ind != nil {
		if ind.RSI != nil {
			b.WriteString(fmt.Sprintf("RSI: %.1f\n", *ind.RSI))
		}
		if ind.MACD != nil && ind.MACDSignal != nil {
			b.WriteString(fmt.Sprintf("MACD: %.3f / signal %.3f\n", *ind.MACD, *ind.MACDSignal))
		}
	}
	if p.Source == model.SourceFallback {
		b.WriteString("\n<i>backend unavailable, simulated result</i>\n")
	}
	b.WriteString(fmt.Sprintf("\n%s", at.Format("2006-01-02 15:04")))
	return b.String()
}

// Status is the dashboard summary shown by the /status command.
type Status struct {
	Symbol     string
	Price      string
	Change     string
	Timeframe  string
	Indicators []string
	Bars       int
	Analyzing  bool
	Prediction *model.Prediction
}

// FormatStatus formats the current dashboard selection for display.
func FormatStatus(s Status) string {
	var b strings.Builder
	b.WriteString("📦 <b>Dashboard status</b>\n\n")
	b.WriteString(fmt.Sprintf("Stock: %s $%s (%s)\n", html.EscapeString(s.Symbol), s.Price, s.Change))
	b.WriteString(fmt.Sprintf("Timeframe: %s | Bars: %d\n", html.EscapeString(s.Timeframe), s.Bars))
	if len(s.Indicators) > 0 {
		b.WriteString(fmt.Sprintf("Indicators: %s\n", strings.Join(s.Indicators, ", ")))
	} else {
		b.WriteString("Indicators: none\n")
	}
	switch {
	case s.Analyzing:
		b.WriteString("Analysis: running\n")
	case s.Prediction != nil:
		b.WriteString(fmt.Sprintf("Last analysis: %s %s%%\n", strings.ToUpper(string(s.Prediction.Trend)), s.Prediction.Confidence))
	}
	return b.String()
}

// HelpText lists the commands HandleCommand understands.
const HelpText = "Commands:\n• /analyze\n• /stock SYMBOL\n• /timeframe LABEL\n• /status\nAnything else is sent to the chat."
