package model

// Indicator ids accepted by the sidebar.
const (
	IndicatorRSI       = "rsi"
	IndicatorBollinger = "bollinger"
	IndicatorEMA       = "ema"
)

// Indicator describes a selectable chart overlay.
type Indicator struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// IndicatorSnapshot holds the latest indicator values reported with a prediction.
type IndicatorSnapshot struct {
	RSI        *float64 `json:"rsi,omitempty"`
	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
}
