package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"TradeDeck/internal/model"
)

var (
	colorUp      = lipgloss.Color("#10B981")
	colorDown    = lipgloss.Color("#EF4444")
	colorAccent  = lipgloss.Color("#60A5FA")
	colorMuted   = lipgloss.Color("#9CA3AF")
	colorWarning = lipgloss.Color("#F59E0B")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	selectedStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	upStyle       = lipgloss.NewStyle().Foreground(colorUp)
	downStyle     = lipgloss.NewStyle().Foreground(colorDown)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
	popupStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(colorWarning).Padding(0, 1)
)

func changeStyle(up bool) lipgloss.Style {
	if up {
		return upStyle
	}
	return downStyle
}

// Render draws every visible panel.
func Render(d Dashboard) string {
	parts := []string{RenderNavBar(d.NavBar), RenderStockDetails(d.Details)}
	if d.Sidebar != nil {
		parts = append(parts, RenderSidebar(*d.Sidebar))
	}
	if d.Chat != nil {
		parts = append(parts, RenderChatPanel(*d.Chat))
	}
	if d.Popup != nil {
		parts = append(parts, RenderAnalysisPopup(*d.Popup))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func RenderNavBar(nb NavBar) string {
	var picks []string
	for _, s := range nb.Stocks {
		label := s.Symbol
		if s.Selected {
			label = selectedStyle.Render("[" + s.Symbol + "]")
		}
		picks = append(picks, label)
	}
	chat := "chat: off"
	if nb.ChatOpen {
		chat = "chat: on"
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(nb.Title), "  ", strings.Join(picks, " "), "  ", mutedStyle.Render(chat))
	return panelStyle.Render(line)
}

func RenderSidebar(sb Sidebar) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Indicators"))
	for _, ind := range sb.Indicators {
		mark := "[ ]"
		if ind.Active {
			mark = "[x]"
		}
		b.WriteString(fmt.Sprintf("\n%s %s %s", mark, ind.Label, mutedStyle.Render(ind.ID)))
	}
	return panelStyle.Render(b.String())
}

func RenderStockDetails(d StockDetails) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s\n", titleStyle.Render(d.Symbol), d.Name))
	b.WriteString(fmt.Sprintf("$%s %s", d.Price, changeStyle(d.Up).Render(d.Change)))
	if d.SessionHigh != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  H %s L %s", d.SessionHigh, d.SessionLow)))
	}
	b.WriteString("\n")

	var tfs []string
	for _, tf := range d.Timeframes {
		if tf.Selected {
			tfs = append(tfs, selectedStyle.Render(tf.Label))
			continue
		}
		tfs = append(tfs, tf.Label)
	}
	b.WriteString(strings.Join(tfs, " "))
	b.WriteString("   < " + d.AnalyzeLabel + " >")
	return panelStyle.Render(b.String())
}

func RenderChatPanel(c ChatPanel) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chat"))
	for _, m := range c.Messages {
		user := m.User
		if m.User == model.UserBot {
			user = titleStyle.Render(m.User)
		}
		b.WriteString(fmt.Sprintf("\n%s %s: %s", mutedStyle.Render(m.Time), user, m.Text))
	}
	b.WriteString("\n> " + c.Draft)
	return panelStyle.Render(b.String())
}

func RenderAnalysisPopup(p AnalysisPopup) string {
	pr := p.Prediction
	var b strings.Builder
	b.WriteString(titleStyle.Render("Analysis: "+p.Symbol) + "\n")
	b.WriteString(changeStyle(pr.Trend == model.TrendBullish).Render(strings.ToUpper(string(pr.Trend))))
	b.WriteString(fmt.Sprintf(" %s%% confidence\n", pr.Confidence))
	b.WriteString(fmt.Sprintf("Target $%s (%s)\n", pr.TargetPrice, pr.Timeframe))
	if pr.SupportLevel != "" || pr.ResistanceLevel != "" {
		b.WriteString(fmt.Sprintf("Support $%s  Resistance $%s", pr.SupportLevel, pr.ResistanceLevel))
	}
	return popupStyle.Render(b.String())
}
