package analysis

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"TradeDeck/internal/collector"
	"TradeDeck/internal/model"
)

// ErrAnalysisInProgress is returned when Predict is called while a run is active.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Phase is the simulator state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnalyzing
	PhasePredicted
	PhaseFallbackPredicted
)

func (p Phase) String() string {
	switch p {
	case PhaseAnalyzing:
		return "analyzing"
	case PhasePredicted:
		return "predicted"
	case PhaseFallbackPredicted:
		return "fallback-predicted"
	default:
		return "idle"
	}
}

// Random is the randomness the fallback draws from.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Simulator produces a Prediction from the backend or, when that fails, from
// the pseudo-random fallback. Every run passes through predicted or
// fallback-predicted and ends in idle; LastOutcome keeps which one it was.
type Simulator struct {
	Fetcher collector.PredictionFetcher
	Rand    Random

	mu    sync.Mutex
	phase Phase
	last  Phase
}

// NewSimulator creates a Simulator. rnd may be nil for the global source.
func NewSimulator(f collector.PredictionFetcher, rnd Random) *Simulator {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Simulator{Fetcher: f, Rand: rnd}
}

// Phase returns the current state.
func (s *Simulator) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LastOutcome returns the terminal phase of the last completed run, or
// PhaseIdle when none completed.
func (s *Simulator) LastOutcome() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Begin moves the simulator to analyzing.
func (s *Simulator) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseAnalyzing {
		return ErrAnalysisInProgress
	}
	s.phase = PhaseAnalyzing
	return nil
}

// Abort returns an analyzing simulator to idle without a result.
func (s *Simulator) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseAnalyzing {
		s.phase = PhaseIdle
	}
}

// Predict runs one analysis for stock at tf. It never fails on backend
// errors; only a concurrent run is rejected.
func (s *Simulator) Predict(ctx context.Context, stock model.StockRef, tf model.Timeframe) (*model.Prediction, error) {
	if err := s.Begin(); err != nil {
		return nil, err
	}
	return s.Resolve(ctx, stock, tf), nil
}

// Resolve finishes a run started with Begin and returns the simulator to idle.
func (s *Simulator) Resolve(ctx context.Context, stock model.StockRef, tf model.Timeframe) *model.Prediction {
	var (
		p     *model.Prediction
		phase = PhasePredicted
	)
	payload, err := s.fetch(ctx, stock.Symbol)
	if err == nil {
		p = FromPayload(payload, stock, tf)
	} else {
		log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("prediction backend failed, using fallback")
		p = Fallback(stock, tf, s.Rand)
		phase = PhaseFallbackPredicted
	}

	s.mu.Lock()
	s.phase = phase
	s.last = phase
	log.Debug().Str("symbol", stock.Symbol).Stringer("phase", phase).Msg("analysis resolved")
	s.phase = PhaseIdle
	s.mu.Unlock()
	return p
}

func (s *Simulator) fetch(ctx context.Context, symbol string) (*collector.PredictionPayload, error) {
	if s.Fetcher == nil {
		return nil, &collector.PredictionFetchError{Symbol: symbol, Err: collector.ErrPredictionUnsupported}
	}
	return s.Fetcher.FetchPrediction(ctx, symbol)
}

var (
	hundred   = decimal.NewFromInt(100)
	supportK  = decimal.RequireFromString("0.95")
	resistK   = decimal.RequireFromString("1.05")
	targetMax = decimal.RequireFromString("0.05")
)

// Confidence returns the probability of the winning side in percent, so a
// bullish probability of 0.2 yields 80.
func Confidence(bullishProbability float64) decimal.Decimal {
	bp := decimal.NewFromFloat(bullishProbability)
	if bp.GreaterThan(decimal.NewFromFloat(0.5)) {
		return clampPercent(bp.Mul(hundred))
	}
	return clampPercent(decimal.NewFromInt(1).Sub(bp).Mul(hundred))
}

func clampPercent(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}

// FromPayload maps a backend response into a Prediction. Missing support or
// resistance levels are derived from the current price like the fallback does.
func FromPayload(payload *collector.PredictionPayload, stock model.StockRef, tf model.Timeframe) *model.Prediction {
	d := payload.Prediction

	trend := model.Trend(strings.ToLower(strings.TrimSpace(d.Direction)))
	if trend != model.TrendBullish && trend != model.TrendBearish {
		trend = model.TrendBearish
		if d.BullishProbability > 0.5 {
			trend = model.TrendBullish
		}
	}

	price := parsePrice(stock.Price)
	if d.CurrentPrice.Valid {
		price = decimal.NewFromFloat(d.CurrentPrice.Float64)
	}

	p := &model.Prediction{
		Trend:           trend,
		Confidence:      Confidence(d.BullishProbability).StringFixed(1),
		TargetPrice:     decimal.NewFromFloat(d.PredictedPrice).StringFixed(2),
		SupportLevel:    price.Mul(supportK).StringFixed(2),
		ResistanceLevel: price.Mul(resistK).StringFixed(2),
		Timeframe:       tf.Label,
		Source:          model.SourceBackend,
	}
	if d.ClosestSupport.Valid {
		p.SupportLevel = decimal.NewFromFloat(d.ClosestSupport.Float64).StringFixed(2)
	}
	if d.ClosestResistance.Valid {
		p.ResistanceLevel = decimal.NewFromFloat(d.ClosestResistance.Float64).StringFixed(2)
	}
	if len(d.Indicators) > 0 {
		snap := &model.IndicatorSnapshot{
			RSI:        d.Indicators["rsi"].Ptr(),
			MACD:       d.Indicators["macd"].Ptr(),
			MACDSignal: d.Indicators["macd_signal"].Ptr(),
		}
		p.Indicators = snap
	}
	return p
}

// Fallback produces a pseudo-random prediction around the stock price:
// random trend, confidence in [60,90), target within 5% in the trend's
// direction, support and resistance 5% below and above.
func Fallback(stock model.StockRef, tf model.Timeframe, rnd Random) *model.Prediction {
	if rnd == nil {
		rnd = globalRand{}
	}
	price := parsePrice(stock.Price)

	trend := model.TrendBearish
	if rnd.Float64() > 0.5 {
		trend = model.TrendBullish
	}
	confidence := decimal.NewFromInt(int64(60 + rnd.IntN(30)))

	move := decimal.NewFromFloat(rnd.Float64()).Mul(targetMax)
	factor := decimal.NewFromInt(1).Sub(move)
	if trend == model.TrendBullish {
		factor = decimal.NewFromInt(1).Add(move)
	}

	return &model.Prediction{
		Trend:           trend,
		Confidence:      confidence.StringFixed(1),
		TargetPrice:     price.Mul(factor).StringFixed(2),
		SupportLevel:    price.Mul(supportK).StringFixed(2),
		ResistanceLevel: price.Mul(resistK).StringFixed(2),
		Timeframe:       tf.Label,
		Source:          model.SourceFallback,
	}
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Summary is the chat line announcing a finished analysis.
func Summary(symbol string, p *model.Prediction) string {
	return fmt.Sprintf("Analysis complete for %s: %s outlook with %s%% confidence. Target price: $%s within this %s timeframe.",
		symbol, strings.ToUpper(string(p.Trend)), p.Confidence, p.TargetPrice, p.Timeframe)
}
