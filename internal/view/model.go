// Package view turns a store snapshot into the panel view models served as
// JSON and rendered in the terminal. Views hold no state of their own.
package view

import (
	"strings"

	"github.com/shopspring/decimal"

	"TradeDeck/internal/calculator"
	"TradeDeck/internal/model"
	"TradeDeck/internal/store"
)

const (
	AppTitle       = "TradeDeck"
	AnalyzeIdle    = "Analyze & Predict"
	AnalyzeRunning = "Analyzing..."
)

type StockOption struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Change   string `json:"change"`
	Selected bool   `json:"selected"`
}

// NavBar is the top bar with the stock picker and the panel toggles.
type NavBar struct {
	Title       string        `json:"title"`
	Stocks      []StockOption `json:"stocks"`
	SidebarOpen bool          `json:"sidebarOpen"`
	ChatOpen    bool          `json:"chatOpen"`
}

type IndicatorOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Sidebar lists the indicators with their active flags.
type Sidebar struct {
	Indicators []IndicatorOption `json:"indicators"`
}

type TimeframeOption struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// StockDetails is the price header above the chart.
type StockDetails struct {
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	Price         string            `json:"price"`
	Change        string            `json:"change"`
	Up            bool              `json:"up"`
	AnalyzeLabel  string            `json:"analyzeLabel"`
	Analyzing     bool              `json:"analyzing"`
	Timeframes    []TimeframeOption `json:"timeframes"`
	SessionHigh   string            `json:"sessionHigh,omitempty"`
	SessionLow    string            `json:"sessionLow,omitempty"`
	RangePosition *float64          `json:"rangePosition,omitempty"`
}

// ChatPanel is the message log and the draft.
type ChatPanel struct {
	Messages []model.ChatMessage `json:"messages"`
	Draft    string              `json:"draft"`
}

// AnalysisPopup is the prediction card.
type AnalysisPopup struct {
	Symbol     string           `json:"symbol"`
	Prediction model.Prediction `json:"prediction"`
}

// Dashboard is the whole page. Hidden panels are nil.
type Dashboard struct {
	NavBar  NavBar         `json:"navBar"`
	Sidebar *Sidebar       `json:"sidebar,omitempty"`
	Details StockDetails   `json:"stockDetails"`
	Chat    *ChatPanel     `json:"chat,omitempty"`
	Popup   *AnalysisPopup `json:"analysisPopup,omitempty"`
}

// Build derives every panel from s.
func Build(s store.State) Dashboard {
	return Dashboard{
		NavBar:  BuildNavBar(s),
		Sidebar: BuildSidebar(s),
		Details: BuildStockDetails(s),
		Chat:    BuildChatPanel(s),
		Popup:   BuildAnalysisPopup(s),
	}
}

func BuildNavBar(s store.State) NavBar {
	nb := NavBar{
		Title:       AppTitle,
		Stocks:      make([]StockOption, 0, len(s.Stocks.Available)),
		SidebarOpen: s.Indicators.SidebarOpen,
		ChatOpen:    s.Chat.Open,
	}
	for _, st := range s.Stocks.Available {
		nb.Stocks = append(nb.Stocks, StockOption{
			Symbol:   st.Symbol,
			Name:     st.Name,
			Price:    st.Price,
			Change:   st.Change,
			Selected: st.Symbol == s.Stocks.Selected.Symbol,
		})
	}
	return nb
}

func BuildSidebar(s store.State) *Sidebar {
	if !s.Indicators.SidebarOpen {
		return nil
	}
	sb := &Sidebar{Indicators: make([]IndicatorOption, 0, len(s.Indicators.Available))}
	for _, ind := range s.Indicators.Available {
		sb.Indicators = append(sb.Indicators, IndicatorOption{
			ID:          ind.Value,
			Label:       ind.Label,
			Icon:        ind.Icon,
			Description: ind.Description,
			Active:      s.Indicators.Active(ind.Value),
		})
	}
	return sb
}

func BuildStockDetails(s store.State) StockDetails {
	meta := s.Stocks.Meta
	d := StockDetails{
		Symbol:       meta.Symbol,
		Name:         meta.Name,
		Price:        meta.Price,
		Change:       meta.Change,
		Up:           !strings.HasPrefix(meta.Change, "-"),
		AnalyzeLabel: AnalyzeIdle,
		Analyzing:    s.Analysis.IsAnalyzing,
		Timeframes:   make([]TimeframeOption, 0, len(s.Timeframe.Available)),
	}
	if d.Analyzing {
		d.AnalyzeLabel = AnalyzeRunning
	}
	for _, tf := range s.Timeframe.Available {
		d.Timeframes = append(d.Timeframes, TimeframeOption{
			Label:    tf.Label,
			Value:    tf.Value,
			Selected: tf.Value == s.Timeframe.Selected.Value,
		})
	}

	bars := s.Stocks.ChartData
	if high, low, err := calculator.CalculateRange(bars, 0); err == nil {
		d.SessionHigh = decimal.NewFromFloat(high).StringFixed(2)
		d.SessionLow = decimal.NewFromFloat(low).StringFixed(2)
		if pos, err := calculator.CalculateRangePosition(bars[len(bars)-1].Close, high, low); err == nil {
			d.RangePosition = &pos
		}
	}
	return d
}

func BuildChatPanel(s store.State) *ChatPanel {
	if !s.Chat.Open {
		return nil
	}
	return &ChatPanel{Messages: s.Chat.Messages, Draft: s.Chat.Draft}
}

func BuildAnalysisPopup(s store.State) *AnalysisPopup {
	if !s.Analysis.ShowPopup || s.Analysis.Prediction == nil {
		return nil
	}
	return &AnalysisPopup{Symbol: s.Stocks.Selected.Symbol, Prediction: *s.Analysis.Prediction}
}
