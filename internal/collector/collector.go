package collector

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"TradeDeck/internal/model"
)

// MockGateway returns controllable fixed data for development and testing.
type MockGateway struct {
	Price         float64
	Bars          []model.OHLCV
	SeriesErr     error
	Prediction    *PredictionPayload
	PredictionErr error

	mu              sync.Mutex
	seriesCalls     int
	predictionCalls int
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) FetchSeries(_ context.Context, symbol, interval string) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.seriesCalls++
	m.mu.Unlock()

	route, err := ResolveRoute(interval)
	if err != nil {
		return nil, &DataFetchError{Symbol: symbol, Interval: interval, Err: err}
	}
	if m.SeriesErr != nil {
		return nil, &DataFetchError{Symbol: symbol, Interval: interval, Err: m.SeriesErr}
	}
	if m.Bars != nil {
		return append([]model.OHLCV(nil), m.Bars...), nil
	}
	step := time.Duration(route.Minutes) * time.Minute
	if route.Kind == KindDaily {
		step = 24 * time.Hour
	}
	return aggregateDaily(generateMockBars(m.Price, 120, step), route.Aggregate), nil
}

func (m *MockGateway) FetchPrediction(_ context.Context, symbol string) (*PredictionPayload, error) {
	m.mu.Lock()
	m.predictionCalls++
	m.mu.Unlock()

	if m.PredictionErr != nil {
		return nil, &PredictionFetchError{Symbol: symbol, Err: m.PredictionErr}
	}
	if m.Prediction == nil {
		return nil, &PredictionFetchError{Symbol: symbol, Err: ErrPredictionUnsupported}
	}
	p := *m.Prediction
	return &p, nil
}

// Calls returns how many series and prediction fetches were made.
func (m *MockGateway) Calls() (series, prediction int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seriesCalls, m.predictionCalls
}

func generateMockBars(basePrice float64, count int, step time.Duration) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	end := time.Now().UTC().Truncate(step)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.01*math.Sin(float64(i)/6) + float64(i-count/2)*0.0005)
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * step).Unix(),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: float64(1000000 + (i%7)*25000),
		}
	}
	return bars
}

// Series is one successful chart load.
type Series struct {
	Symbol    string
	Interval  string
	Bars      []model.OHLCV
	Meta      model.StockMeta
	FetchedAt time.Time
}

// Collector orchestrates series loading and quote derivation.
type Collector struct {
	Gateway Gateway
	Cache   *CachedFetcher // optional
}

// NewCollector creates a new Collector. cache may be nil.
func NewCollector(gw Gateway, cache *CachedFetcher) *Collector {
	return &Collector{Gateway: gw, Cache: cache}
}

func (c *Collector) Name() string { return c.Gateway.Name() }

func (c *Collector) FetchSeries(ctx context.Context, symbol, interval string) ([]model.OHLCV, error) {
	if c.Cache != nil {
		return c.Cache.FetchSeries(ctx, symbol, interval)
	}
	return c.Gateway.FetchSeries(ctx, symbol, interval)
}

func (c *Collector) FetchPrediction(ctx context.Context, symbol string) (*PredictionPayload, error) {
	return c.Gateway.FetchPrediction(ctx, symbol)
}

// Load fetches the chart series for stock at tf and derives the price header.
func (c *Collector) Load(ctx context.Context, stock model.StockRef, tf model.Timeframe) (*Series, error) {
	bars, err := c.FetchSeries(ctx, stock.Symbol, tf.Value)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", stock.Symbol, tf.Label, err)
	}
	return &Series{
		Symbol:    stock.Symbol,
		Interval:  tf.Value,
		Bars:      bars,
		Meta:      QuoteFromBars(stock, bars),
		FetchedAt: time.Now(),
	}, nil
}

// QuoteFromBars derives price and change strings from the last two bars.
// With a single bar the change is measured against its open. Without bars the
// catalog values are kept.
func QuoteFromBars(stock model.StockRef, bars []model.OHLCV) model.StockMeta {
	meta := model.StockMeta{Symbol: stock.Symbol, Name: stock.Name, Price: stock.Price, Change: stock.Change}
	if len(bars) == 0 {
		return meta
	}
	last := bars[len(bars)-1]
	ref := last.Open
	if len(bars) > 1 {
		ref = bars[len(bars)-2].Close
	}
	meta.Price = decimal.NewFromFloat(last.Close).StringFixed(2)
	meta.Change = FormatChange(ref, last.Close)
	return meta
}

// FormatChange renders the percent move from ref to cur as "+1.23%" / "-0.45%".
func FormatChange(ref, cur float64) string {
	if ref == 0 {
		return "+0.00%"
	}
	r := decimal.NewFromFloat(ref)
	pct := decimal.NewFromFloat(cur).Sub(r).Div(r).Mul(decimal.NewFromInt(100)).Round(2)
	sign := "+"
	if pct.IsNegative() {
		sign = ""
	}
	return sign + pct.StringFixed(2) + "%"
}
