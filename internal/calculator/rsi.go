package calculator

import (
	"errors"

	"TradeDeck/internal/model"
)

// RSISeries computes the Wilder-smoothed RSI over closing prices.
// The window is period closes wide, so the first value lines up with
// prices[period-1] and is seeded from the period-1 changes inside it.
func RSISeries(prices []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, errors.New("rsi period must be at least 2")
	}
	if len(prices) < period {
		return []float64{}, nil
	}

	// Seed over the first window
	var avgGain, avgLoss float64
	for i := 1; i < period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period - 1)
	avgLoss /= float64(period - 1)

	out := make([]float64, 0, len(prices)-period+1)
	out = append(out, rsiValue(avgGain, avgLoss))

	// Wilder smoothing for remaining bars
	for i := period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0 // flat window
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// CalculateRSI returns the latest RSI value of the bars.
// Returns 50.0 if data is insufficient.
func CalculateRSI(bars []model.OHLCV, period int) (float64, error) {
	series, err := RSISeries(Closes(bars), period)
	if err != nil {
		return 0, err
	}
	if len(series) == 0 {
		return 50.0, nil // default when data insufficient
	}
	return series[len(series)-1], nil
}
