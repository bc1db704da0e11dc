package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   int64   `json:"time"` // unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// At returns the bar timestamp as a time.Time in UTC.
func (b OHLCV) At() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// Up reports whether the bar closed at or above its open.
func (b OHLCV) Up() bool {
	return b.Close >= b.Open
}

// StockRef is one entry of the stock picker.
type StockRef struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Change string `json:"change"`
	Sector string `json:"sector"`
}

// StockMeta is the price header shown above the chart.
type StockMeta struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Change string `json:"change"`
}

// Timeframe pairs a picker label with the interval code sent to the backend.
type Timeframe struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
