package store

import (
	"TradeDeck/internal/model"
)

// Reduce applies a to every slice. Reducers never write into the slices of
// the incoming state; changed collections are always copied.
func Reduce(s State, a Action) State {
	s.Stocks = reduceStocks(s.Stocks, a)
	s.Timeframe = reduceTimeframe(s.Timeframe, a)
	s.Indicators = reduceIndicators(s.Indicators, a)
	s.Chat = reduceChat(s.Chat, a)
	s.Analysis = reduceAnalysis(s.Analysis, a)
	return s
}

func reduceStocks(s StocksState, a Action) StocksState {
	switch act := a.(type) {
	case SetSelectedStock:
		s.Selected = act.Stock
	case SetChartData:
		s.ChartData = append(make([]model.OHLCV, 0, len(act.Bars)), act.Bars...)
		s.ChartVersion++
	case SetCurrentStockMetaData:
		// no metadata without a chart to back it
		if len(s.ChartData) > 0 {
			s.Meta = act.Meta
		}
	case UpdateStockQuote:
		avail := make([]model.StockRef, len(s.Available))
		copy(avail, s.Available)
		for i := range avail {
			if avail[i].Symbol == act.Symbol {
				avail[i].Price = act.Price
				avail[i].Change = act.Change
			}
		}
		s.Available = avail
		if s.Selected.Symbol == act.Symbol {
			s.Selected.Price = act.Price
			s.Selected.Change = act.Change
		}
	}
	return s
}

func reduceTimeframe(s TimeframeState, a Action) TimeframeState {
	if act, ok := a.(SetSelectedTimeframe); ok {
		s.Selected = act.Timeframe
	}
	return s
}

func reduceIndicators(s IndicatorsState, a Action) IndicatorsState {
	switch act := a.(type) {
	case SetSelectedIndicators:
		sel := make([]string, 0, len(act.IDs))
		seen := make(map[string]bool, len(act.IDs))
		for _, id := range act.IDs {
			if model.IsIndicator(id) && !seen[id] {
				seen[id] = true
				sel = append(sel, id)
			}
		}
		s.Selected = sel
	case ToggleIndicator:
		if !model.IsIndicator(act.ID) {
			return s
		}
		sel := make([]string, 0, len(s.Selected)+1)
		found := false
		for _, id := range s.Selected {
			if id == act.ID {
				found = true
				continue
			}
			sel = append(sel, id)
		}
		if !found {
			sel = append(sel, act.ID)
		}
		s.Selected = sel
	case ToggleSidebar:
		s.SidebarOpen = !s.SidebarOpen
	}
	return s
}

func reduceChat(s ChatState, a Action) ChatState {
	switch act := a.(type) {
	case ToggleChat:
		s.Open = !s.Open
	case AddMessage:
		msg := act.Message
		msg.ID = len(s.Messages) + 1
		msgs := make([]model.ChatMessage, len(s.Messages), len(s.Messages)+1)
		copy(msgs, s.Messages)
		s.Messages = append(msgs, msg)
	case SetDraft:
		s.Draft = act.Text
	}
	return s
}

func reduceAnalysis(s AnalysisState, a Action) AnalysisState {
	switch act := a.(type) {
	case StartAnalyzing:
		s.IsAnalyzing = true
	case StopAnalyzing:
		s.IsAnalyzing = false
	case SetPrediction:
		s.Prediction = act.Prediction
	case SetShowAnalysisPopup:
		s.ShowPopup = act.Show
	}
	return s
}
