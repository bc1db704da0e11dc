package model

// DefaultTimeframeIndex selects 5m on start.
const DefaultTimeframeIndex = 1

// Interval codes routed to the daily backend endpoint.
const (
	IntervalDaily   = "1440"
	IntervalWeekly  = "10080"
	IntervalMonthly = "43200"
)

// Timeframes returns the picker list.
func Timeframes() []Timeframe {
	return []Timeframe{
		{Label: "1m", Value: "1"},
		{Label: "5m", Value: "5"},
		{Label: "15m", Value: "15"},
		{Label: "30m", Value: "30"},
		{Label: "1H", Value: "60"},
		{Label: "1D", Value: IntervalDaily},
	}
}

// Indicators returns the sidebar catalog.
func Indicators() []Indicator {
	return []Indicator{
		{Label: "RSI", Value: IndicatorRSI, Icon: "Activity", Description: "Relative Strength Index - Momentum indicator that measures the magnitude of recent price changes"},
		{Label: "BB", Value: IndicatorBollinger, Icon: "Waves", Description: "Bollinger Bands - Shows volatility channels around a moving average"},
		{Label: "EMA", Value: IndicatorEMA, Icon: "TrendingDown", Description: "Exponential Moving Average - Weighted moving average emphasizing recent prices"},
	}
}

// Stocks returns the stock picker list.
func Stocks() []StockRef {
	return []StockRef{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: "205.78", Change: "+2.35%", Sector: "Technology"},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Price: "172.54", Change: "-0.87%", Sector: "Technology"},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Price: "415.32", Change: "+1.02%", Sector: "Technology"},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", Price: "185.67", Change: "+0.45%", Sector: "Consumer Cyclical"},
	}
}

// IsIndicator reports whether id names a catalog indicator.
func IsIndicator(id string) bool {
	for _, ind := range Indicators() {
		if ind.Value == id {
			return true
		}
	}
	return false
}

// FindStock looks up a catalog entry by symbol.
func FindStock(stocks []StockRef, symbol string) (StockRef, bool) {
	for _, s := range stocks {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return StockRef{}, false
}

// FindTimeframe looks up a timeframe by label or interval code.
func FindTimeframe(frames []Timeframe, key string) (Timeframe, bool) {
	for _, tf := range frames {
		if tf.Label == key || tf.Value == key {
			return tf, true
		}
	}
	return Timeframe{}, false
}
