package store

import (
	"TradeDeck/internal/model"
)

// State is an immutable snapshot of the whole application. Slices inside are
// shared between snapshots and must be treated as read-only.
type State struct {
	Stocks     StocksState     `json:"stocks"`
	Timeframe  TimeframeState  `json:"timeframe"`
	Indicators IndicatorsState `json:"indicators"`
	Chat       ChatState       `json:"chat"`
	Analysis   AnalysisState   `json:"analysis"`
}

// StocksState holds the picker, the loaded chart data and the price header.
type StocksState struct {
	Available []model.StockRef `json:"availableStocks"`
	Selected  model.StockRef   `json:"selectedStock"`
	ChartData []model.OHLCV    `json:"chartData"`
	Meta      model.StockMeta  `json:"currentStockMetaData"`
	// ChartVersion changes every time ChartData is replaced.
	ChartVersion uint64 `json:"chartVersion"`
}

type TimeframeState struct {
	Available []model.Timeframe `json:"availableTimeframes"`
	Selected  model.Timeframe   `json:"selectedTimeframe"`
}

type IndicatorsState struct {
	Available   []model.Indicator `json:"availableIndicators"`
	Selected    []string          `json:"selectedIndicators"`
	SidebarOpen bool              `json:"sidebarOpen"`
}

// Active reports whether indicator id is selected.
func (s IndicatorsState) Active(id string) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

type ChatState struct {
	Open     bool                `json:"chatOpen"`
	Messages []model.ChatMessage `json:"messages"`
	Draft    string              `json:"newMessage"`
}

type AnalysisState struct {
	IsAnalyzing bool              `json:"isAnalyzing"`
	ShowPopup   bool              `json:"showAnalysisPopup"`
	Prediction  *model.Prediction `json:"prediction"`
}

// InitialState returns the state the dashboard starts from.
func InitialState() State {
	stocks := model.Stocks()
	frames := model.Timeframes()
	first := stocks[0]
	return State{
		Stocks: StocksState{
			Available: stocks,
			Selected:  first,
			ChartData: []model.OHLCV{},
			Meta:      model.StockMeta{Symbol: first.Symbol, Name: first.Name, Price: first.Price, Change: first.Change},
		},
		Timeframe: TimeframeState{
			Available: frames,
			Selected:  frames[model.DefaultTimeframeIndex],
		},
		Indicators: IndicatorsState{
			Available:   model.Indicators(),
			Selected:    []string{},
			SidebarOpen: true,
		},
		Chat: ChatState{
			Open:     true,
			Messages: []model.ChatMessage{},
		},
	}
}
