package calculator

import (
	"errors"
	"math"
)

// Band is one Bollinger Bands sample.
type Band struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// BollingerSeries computes bands of k population standard deviations around
// the period SMA. One band per full window.
func BollingerSeries(prices []float64, period int, k float64) ([]Band, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	if k < 0 {
		return nil, errors.New("band width must not be negative")
	}
	if len(prices) < period {
		return []Band{}, nil
	}
	means, err := SMASeries(prices, period)
	if err != nil {
		return nil, err
	}

	out := make([]Band, len(means))
	for i, mean := range means {
		var variance float64
		for _, p := range prices[i : i+period] {
			d := p - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		out[i] = Band{Middle: mean, Upper: mean + k*sd, Lower: mean - k*sd}
	}
	return out, nil
}
