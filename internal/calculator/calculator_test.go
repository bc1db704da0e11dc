package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDeck/internal/model"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestOverlayLengths(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		period int
		want   int
	}{
		{name: "ema 20 closes", n: 20, period: 14, want: 7},
		{name: "exactly one window", n: 14, period: 14, want: 1},
		{name: "too short", n: 13, period: 14, want: 0},
		{name: "empty input", n: 0, period: 14, want: 0},
		{name: "bollinger window", n: 50, period: 20, want: 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closes := ramp(tt.n)

			ema, err := EMASeries(closes, tt.period)
			require.NoError(t, err)
			assert.Len(t, ema, tt.want)

			rsi, err := RSISeries(closes, tt.period)
			require.NoError(t, err)
			assert.Len(t, rsi, tt.want)

			bands, err := BollingerSeries(closes, tt.period, 2)
			require.NoError(t, err)
			assert.Len(t, bands, tt.want)
		})
	}
}

func TestEMASeries_SeededWithSMA(t *testing.T) {
	ema, err := EMASeries(ramp(20), 14)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, ema[0], 1e-9)
	assert.InDelta(t, 8.5, ema[1], 1e-9)
}

func TestRSISeries_Extremes(t *testing.T) {
	up, err := RSISeries(ramp(30), 14)
	require.NoError(t, err)
	for _, v := range up {
		assert.Equal(t, 100.0, v)
	}

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 42
	}
	mid, err := RSISeries(flat, 14)
	require.NoError(t, err)
	for _, v := range mid {
		assert.Equal(t, 50.0, v)
	}

	down := ramp(30)
	for i, j := 0, len(down)-1; i < j; i, j = i+1, j-1 {
		down[i], down[j] = down[j], down[i]
	}
	low, err := RSISeries(down, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, low[len(low)-1], 1e-9)
}

func TestRSISeries_InvalidPeriod(t *testing.T) {
	_, err := RSISeries(ramp(10), 1)
	assert.Error(t, err)
}

func TestBollingerSeries_ConstantPrices(t *testing.T) {
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = 10
	}
	bands, err := BollingerSeries(prices, 20, 2)
	require.NoError(t, err)
	require.Len(t, bands, 6)
	for _, b := range bands {
		assert.Equal(t, 10.0, b.Middle)
		assert.Equal(t, 10.0, b.Upper)
		assert.Equal(t, 10.0, b.Lower)
	}
}

func TestBollingerSeries_Width(t *testing.T) {
	// population sd of {1,3} is 1
	bands, err := BollingerSeries([]float64{1, 3}, 2, 2)
	require.NoError(t, err)
	require.Len(t, bands, 1)
	assert.InDelta(t, 2.0, bands[0].Middle, 1e-9)
	assert.InDelta(t, 4.0, bands[0].Upper, 1e-9)
	assert.InDelta(t, 0.0, bands[0].Lower, 1e-9)
}

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	_, err = CalculateSMA([]float64{1}, 2)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1}, 0)
	assert.Error(t, err)
}

func TestCalculateRSI_InsufficientData(t *testing.T) {
	v, err := CalculateRSI([]model.OHLCV{{Close: 1}}, 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)
}

func TestCalculateRange(t *testing.T) {
	bars := []model.OHLCV{
		{High: 10, Low: 5},
		{High: 12, Low: 7},
		{High: 11, Low: 8},
	}
	h, l, err := CalculateRange(bars, 0)
	require.NoError(t, err)
	assert.Equal(t, 12.0, h)
	assert.Equal(t, 5.0, l)

	h, l, err = CalculateRange(bars, 1)
	require.NoError(t, err)
	assert.Equal(t, 11.0, h)
	assert.Equal(t, 8.0, l)

	_, _, err = CalculateRange(nil, 0)
	assert.Error(t, err)
}

func TestCalculateRangePosition(t *testing.T) {
	pos, err := CalculateRangePosition(15, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	pos, _ = CalculateRangePosition(25, 20, 10)
	assert.Equal(t, 1.0, pos)

	_, err = CalculateRangePosition(1, 1, 2)
	assert.Error(t, err)
}
