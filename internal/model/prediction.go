package model

// Trend is the predicted price direction.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
)

// PredictionSource tells whether a prediction came from the backend or the local fallback.
type PredictionSource string

const (
	SourceBackend  PredictionSource = "backend"
	SourceFallback PredictionSource = "fallback"
)

// Prediction is the result of one "analyze" action.
type Prediction struct {
	Trend           Trend              `json:"trend"`
	Confidence      string             `json:"confidence"` // percent, one decimal
	TargetPrice     string             `json:"targetPrice"`
	SupportLevel    string             `json:"supportLevel,omitempty"`
	ResistanceLevel string             `json:"resistanceLevel,omitempty"`
	Timeframe       string             `json:"timeframe"`
	Source          PredictionSource   `json:"source"`
	Indicators      *IndicatorSnapshot `json:"indicators,omitempty"`
}
