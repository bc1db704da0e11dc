package store

import "TradeDeck/internal/model"

// Action is a state transition request handled by the slice reducers.
type Action interface {
	Type() string
}

// Stocks slice.
type (
	SetSelectedStock        struct{ Stock model.StockRef }
	SetChartData            struct{ Bars []model.OHLCV }
	SetCurrentStockMetaData struct{ Meta model.StockMeta }
	UpdateStockQuote        struct{ Symbol, Price, Change string }
)

// Timeframe slice.
type SetSelectedTimeframe struct{ Timeframe model.Timeframe }

// Indicators slice.
type (
	SetSelectedIndicators struct{ IDs []string }
	ToggleIndicator       struct{ ID string }
	ToggleSidebar         struct{}
)

// Chat slice.
type (
	ToggleChat struct{}
	AddMessage struct{ Message model.ChatMessage }
	SetDraft   struct{ Text string }
)

// Analysis slice.
type (
	StartAnalyzing       struct{}
	StopAnalyzing        struct{}
	SetPrediction        struct{ Prediction *model.Prediction }
	SetShowAnalysisPopup struct{ Show bool }
)

func (SetSelectedStock) Type() string        { return "stocks/setSelectedStock" }
func (SetChartData) Type() string            { return "stocks/setChartData" }
func (SetCurrentStockMetaData) Type() string { return "stocks/setCurrentStockMetaData" }
func (UpdateStockQuote) Type() string        { return "stocks/updateStockQuote" }
func (SetSelectedTimeframe) Type() string    { return "timeframe/setSelectedTimeframe" }
func (SetSelectedIndicators) Type() string   { return "indicators/setSelectedIndicators" }
func (ToggleIndicator) Type() string         { return "indicators/toggleIndicator" }
func (ToggleSidebar) Type() string           { return "indicators/toggleSidebar" }
func (ToggleChat) Type() string              { return "chat/toggleChat" }
func (AddMessage) Type() string              { return "chat/addMessage" }
func (SetDraft) Type() string                { return "chat/setNewMessage" }
func (StartAnalyzing) Type() string          { return "analysis/startAnalyzing" }
func (StopAnalyzing) Type() string           { return "analysis/stopAnalyzing" }
func (SetPrediction) Type() string           { return "analysis/setPrediction" }
func (SetShowAnalysisPopup) Type() string    { return "analysis/setShowAnalysisPopup" }
