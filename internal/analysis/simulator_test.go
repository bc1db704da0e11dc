package analysis

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDeck/internal/collector"
	"TradeDeck/internal/model"
)

var (
	aapl = model.StockRef{Symbol: "AAPL", Name: "Apple Inc.", Price: "200.00", Change: "+2.35%"}
	tf5m = model.Timeframe{Label: "5m", Value: "5"}
)

type fixedRand struct {
	floats []float64
	ints   []int
}

func (r *fixedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *fixedRand) IntN(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func TestPredict_BackendBearish(t *testing.T) {
	gw := &collector.MockGateway{Prediction: &collector.PredictionPayload{Prediction: collector.PredictionData{
		Direction:          "Bearish",
		BullishProbability: 0.2,
		PredictedPrice:     100.00,
	}}}
	sim := NewSimulator(gw, nil)

	p, err := sim.Predict(context.Background(), aapl, tf5m)
	require.NoError(t, err)
	assert.Equal(t, model.TrendBearish, p.Trend)
	assert.Equal(t, "80.0", p.Confidence)
	assert.Equal(t, "100.00", p.TargetPrice)
	assert.Equal(t, "190.00", p.SupportLevel)
	assert.Equal(t, "210.00", p.ResistanceLevel)
	assert.Equal(t, "5m", p.Timeframe)
	assert.Equal(t, model.SourceBackend, p.Source)
	assert.Equal(t, PhaseIdle, sim.Phase())
	assert.Equal(t, PhasePredicted, sim.LastOutcome())
}

func TestPredict_BackendLevelsAndIndicators(t *testing.T) {
	gw := &collector.MockGateway{Prediction: &collector.PredictionPayload{Prediction: collector.PredictionData{
		Direction:          "Bullish",
		BullishProbability: 0.73,
		PredictedPrice:     212.345,
		ClosestSupport:     null.FloatFrom(198.1),
		ClosestResistance:  null.FloatFrom(215),
		Indicators:         map[string]null.Float{"rsi": null.FloatFrom(61.5)},
	}}}
	p, err := NewSimulator(gw, nil).Predict(context.Background(), aapl, tf5m)
	require.NoError(t, err)
	assert.Equal(t, model.TrendBullish, p.Trend)
	assert.Equal(t, "73.0", p.Confidence)
	assert.Equal(t, "212.35", p.TargetPrice)
	assert.Equal(t, "198.10", p.SupportLevel)
	assert.Equal(t, "215.00", p.ResistanceLevel)
	require.NotNil(t, p.Indicators)
	require.NotNil(t, p.Indicators.RSI)
	assert.Equal(t, 61.5, *p.Indicators.RSI)
	assert.Nil(t, p.Indicators.MACD)
}

func TestPredict_FallbackOnFailure(t *testing.T) {
	gw := &collector.MockGateway{PredictionErr: errors.New("connection refused")}
	sim := NewSimulator(gw, nil)

	for i := 0; i < 200; i++ {
		p, err := sim.Predict(context.Background(), aapl, tf5m)
		require.NoError(t, err)
		assert.Contains(t, []model.Trend{model.TrendBullish, model.TrendBearish}, p.Trend)

		conf, err := strconv.ParseFloat(p.Confidence, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, conf, 60.0)
		assert.Less(t, conf, 90.0)

		target, err := strconv.ParseFloat(p.TargetPrice, 64)
		require.NoError(t, err)
		if p.Trend == model.TrendBullish {
			assert.GreaterOrEqual(t, target, 200.0)
			assert.LessOrEqual(t, target, 210.0)
		} else {
			assert.LessOrEqual(t, target, 200.0)
			assert.GreaterOrEqual(t, target, 190.0)
		}
		assert.Equal(t, "190.00", p.SupportLevel)
		assert.Equal(t, "210.00", p.ResistanceLevel)
		assert.Equal(t, model.SourceFallback, p.Source)
	}
	assert.Equal(t, PhaseIdle, sim.Phase())
	assert.Equal(t, PhaseFallbackPredicted, sim.LastOutcome())
}

func TestFallback_Deterministic(t *testing.T) {
	rnd := &fixedRand{floats: []float64{0.9, 0.5}, ints: []int{12}}
	p := Fallback(aapl, tf5m, rnd)
	assert.Equal(t, model.TrendBullish, p.Trend)
	assert.Equal(t, "72.0", p.Confidence)
	assert.Equal(t, "205.00", p.TargetPrice)

	rnd = &fixedRand{floats: []float64{0.1, 1.0}, ints: []int{29}}
	p = Fallback(aapl, tf5m, rnd)
	assert.Equal(t, model.TrendBearish, p.Trend)
	assert.Equal(t, "89.0", p.Confidence)
	assert.Equal(t, "190.00", p.TargetPrice)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		bp   float64
		want string
	}{
		{0.2, "80.0"},
		{0.5, "50.0"},
		{0.51, "51.0"},
		{1, "100.0"},
		{0, "100.0"},
		{1.7, "100.0"},
		{-0.5, "100.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Confidence(tt.bp).StringFixed(1), "bp=%v", tt.bp)
	}
}

func TestPredict_RejectsConcurrentRun(t *testing.T) {
	sim := NewSimulator(nil, nil)
	require.NoError(t, sim.Begin())
	_, err := sim.Predict(context.Background(), aapl, tf5m)
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	sim.Abort()
	assert.Equal(t, PhaseIdle, sim.Phase())
	assert.Equal(t, PhaseIdle, sim.LastOutcome(), "aborted run leaves no outcome")
	p, err := sim.Predict(context.Background(), aapl, tf5m)
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, p.Source)
	assert.Equal(t, PhaseIdle, sim.Phase())

	require.NoError(t, sim.Begin(), "a finished run accepts the next one")
	assert.Equal(t, PhaseAnalyzing, sim.Phase())
}

func TestSummary(t *testing.T) {
	p := &model.Prediction{Trend: model.TrendBullish, Confidence: "72.0", TargetPrice: "210.50", Timeframe: "15m"}
	assert.Equal(t,
		"Analysis complete for MSFT: BULLISH outlook with 72.0% confidence. Target price: $210.50 within this 15m timeframe.",
		Summary("MSFT", p))
}
