package chart

import (
	"fmt"

	"TradeDeck/internal/calculator"
	"TradeDeck/internal/model"
)

// Overlay parameters.
const (
	EMAPeriod       = 14
	RSIPeriod       = 14
	BollingerPeriod = 20
	BollingerWidth  = 2.0
)

// Series colours.
const (
	colorEMA        = "#60A5FA"
	colorRSI        = "#F59E0B"
	colorUpperBand  = "#EF4444"
	colorLowerBand  = "#10B981"
	colorVolumeUp   = "#22C55E66"
	colorVolumeDown = "#EF444466"
)

// Point is one sample of a line series.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Candle is one candlestick.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// VolumeBar is one histogram column.
type VolumeBar struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Scale places a series on its own price axis.
type Scale struct {
	ID           string  `json:"id"`
	MarginTop    float64 `json:"marginTop"`
	MarginBottom float64 `json:"marginBottom"`
}

// Line is one indicator overlay.
type Line struct {
	ID        string  `json:"id"`
	Indicator string  `json:"indicator"`
	Color     string  `json:"color"`
	Width     int     `json:"lineWidth"`
	Points    []Point `json:"points"`
}

// Spec is everything needed to draw one chart.
type Spec struct {
	Symbol      string      `json:"symbol"`
	Timeframe   string      `json:"timeframe"`
	Candles     []Candle    `json:"candles"`
	Volume      []VolumeBar `json:"volume"`
	VolumeScale Scale       `json:"volumeScale"`
	Overlays    []Line      `json:"overlays"`
}

// Build maps bars to candles and volume and computes the selected overlays.
// Overlays are tail-aligned: an overlay of k values is drawn on the last k
// timestamps. Indicators that need more history than available yield an
// overlay with no points.
func Build(bars []model.OHLCV, indicators []string) (*Spec, error) {
	spec := &Spec{
		Candles:     make([]Candle, len(bars)),
		Volume:      make([]VolumeBar, len(bars)),
		VolumeScale: Scale{ID: "volume", MarginTop: 0.75, MarginBottom: 0},
		Overlays:    []Line{},
	}
	times := make([]int64, len(bars))
	for i, b := range bars {
		times[i] = b.Time
		spec.Candles[i] = Candle{Time: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
		color := colorVolumeDown
		if b.Up() {
			color = colorVolumeUp
		}
		spec.Volume[i] = VolumeBar{Time: b.Time, Value: b.Volume, Color: color}
	}

	selected := make(map[string]bool, len(indicators))
	for _, id := range indicators {
		selected[id] = true
	}
	closes := calculator.Closes(bars)

	if selected[model.IndicatorEMA] {
		vals, err := calculator.EMASeries(closes, EMAPeriod)
		if err != nil {
			return nil, fmt.Errorf("ema: %w", err)
		}
		spec.Overlays = append(spec.Overlays, Line{ID: "ema", Indicator: model.IndicatorEMA, Color: colorEMA, Width: 2, Points: tailAlign(times, vals)})
	}
	if selected[model.IndicatorRSI] {
		vals, err := calculator.RSISeries(closes, RSIPeriod)
		if err != nil {
			return nil, fmt.Errorf("rsi: %w", err)
		}
		spec.Overlays = append(spec.Overlays, Line{ID: "rsi", Indicator: model.IndicatorRSI, Color: colorRSI, Width: 2, Points: tailAlign(times, vals)})
	}
	if selected[model.IndicatorBollinger] {
		bands, err := calculator.BollingerSeries(closes, BollingerPeriod, BollingerWidth)
		if err != nil {
			return nil, fmt.Errorf("bollinger: %w", err)
		}
		upper := make([]float64, len(bands))
		lower := make([]float64, len(bands))
		for i, b := range bands {
			upper[i] = b.Upper
			lower[i] = b.Lower
		}
		spec.Overlays = append(spec.Overlays,
			Line{ID: "bollinger_upper", Indicator: model.IndicatorBollinger, Color: colorUpperBand, Width: 1, Points: tailAlign(times, upper)},
			Line{ID: "bollinger_lower", Indicator: model.IndicatorBollinger, Color: colorLowerBand, Width: 1, Points: tailAlign(times, lower)},
		)
	}
	return spec, nil
}

func tailAlign(times []int64, vals []float64) []Point {
	if len(vals) > len(times) {
		vals = vals[len(vals)-len(times):]
	}
	offset := len(times) - len(vals)
	pts := make([]Point, len(vals))
	for i, v := range vals {
		pts[i] = Point{Time: times[offset+i], Value: v}
	}
	return pts
}
