package collector

import (
	"context"

	"TradeDeck/internal/model"
)

// SeriesFetcher loads OHLCV bars for a symbol at a backend interval code.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, symbol, interval string) ([]model.OHLCV, error)
	Name() string
}

// PredictionFetcher asks the backend for a trend prediction.
type PredictionFetcher interface {
	FetchPrediction(ctx context.Context, symbol string) (*PredictionPayload, error)
}

// Gateway is the full remote data surface used by the dashboard.
type Gateway interface {
	SeriesFetcher
	PredictionFetcher
}
