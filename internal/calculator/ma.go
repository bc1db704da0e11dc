package calculator

import (
	"errors"

	"TradeDeck/internal/model"
)

var (
	errPeriod   = errors.New("period must be positive")
	errTooShort = errors.New("not enough data for SMA calculation")
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errPeriod
	}
	if len(prices) < period {
		return 0, errTooShort
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns one simple moving average per full window, so the result is
// len(prices)-(period-1) long, or empty when there is not enough data.
func SMASeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	if len(prices) < period {
		return []float64{}, nil
	}
	out := make([]float64, 0, len(prices)-period+1)
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// EMASeries computes the exponential moving average seeded with the SMA of the
// first period prices. The first value lines up with prices[period-1].
func EMASeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	if len(prices) < period {
		return []float64{}, nil
	}
	k := 2.0 / float64(period+1)
	seed, _ := CalculateSMA(prices[:period], period)

	out := make([]float64, 0, len(prices)-period+1)
	out = append(out, seed)
	prev := seed
	for _, p := range prices[period:] {
		prev = (p-prev)*k + prev
		out = append(out, prev)
	}
	return out, nil
}

// Closes extracts closing prices in bar order.
func Closes(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
