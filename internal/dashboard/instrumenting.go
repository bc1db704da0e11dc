package dashboard

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"TradeDeck/internal/chart"
	"TradeDeck/internal/model"
	"TradeDeck/internal/store"
)

var methodError = []string{"method", "error"}

// Metrics are the request metrics of the instrumenting middleware.
type Metrics struct {
	Count    metrics.Counter
	Duration metrics.Histogram
}

// NewMetrics registers the request count and duration collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) Metrics {
	count := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of dashboard operations.",
	}, methodError)
	duration := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Duration of dashboard operations.",
	}, methodError)
	reg.MustRegister(count, duration)
	return Metrics{
		Count:    kitprometheus.NewCounter(count),
		Duration: kitprometheus.NewSummary(duration),
	}
}

// instrumentingMiddleware wraps Service and records request metrics.
type instrumentingMiddleware struct {
	reqCount    metrics.Counter
	reqDuration metrics.Histogram
	svc         Service
}

// NewInstrumentingMiddleware returns svc with every mutating call measured.
func NewInstrumentingMiddleware(m Metrics, svc Service) Service {
	return &instrumentingMiddleware{reqCount: m.Count, reqDuration: m.Duration, svc: svc}
}

func (s *instrumentingMiddleware) recordMetrics(method string, startTime time.Time, err error) {
	labels := []string{
		"method", method,
		"error", strconv.FormatBool(err != nil),
	}
	s.reqCount.With(labels...).Add(1)
	s.reqDuration.With(labels...).Observe(time.Since(startTime).Seconds())
}

func (s *instrumentingMiddleware) State() store.State { return s.svc.State() }

func (s *instrumentingMiddleware) Chart() *chart.Spec { return s.svc.Chart() }

func (s *instrumentingMiddleware) SelectStock(ctx context.Context, symbol string) (err error) {
	defer func(begin time.Time) { s.recordMetrics("SelectStock", begin, err) }(time.Now())
	return s.svc.SelectStock(ctx, symbol)
}

func (s *instrumentingMiddleware) SelectTimeframe(ctx context.Context, label string) (err error) {
	defer func(begin time.Time) { s.recordMetrics("SelectTimeframe", begin, err) }(time.Now())
	return s.svc.SelectTimeframe(ctx, label)
}

func (s *instrumentingMiddleware) ToggleIndicator(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) { s.recordMetrics("ToggleIndicator", begin, err) }(time.Now())
	return s.svc.ToggleIndicator(ctx, id)
}

func (s *instrumentingMiddleware) ToggleSidebar(ctx context.Context) (err error) {
	defer func(begin time.Time) { s.recordMetrics("ToggleSidebar", begin, err) }(time.Now())
	return s.svc.ToggleSidebar(ctx)
}

func (s *instrumentingMiddleware) ToggleChat(ctx context.Context) (err error) {
	defer func(begin time.Time) { s.recordMetrics("ToggleChat", begin, err) }(time.Now())
	return s.svc.ToggleChat(ctx)
}

func (s *instrumentingMiddleware) SetDraft(ctx context.Context, text string) (err error) {
	defer func(begin time.Time) { s.recordMetrics("SetDraft", begin, err) }(time.Now())
	return s.svc.SetDraft(ctx, text)
}

func (s *instrumentingMiddleware) SendChat(ctx context.Context, text string) (err error) {
	defer func(begin time.Time) { s.recordMetrics("SendChat", begin, err) }(time.Now())
	return s.svc.SendChat(ctx, text)
}

func (s *instrumentingMiddleware) Analyze(ctx context.Context) (p *model.Prediction, err error) {
	defer func(begin time.Time) { s.recordMetrics("Analyze", begin, err) }(time.Now())
	return s.svc.Analyze(ctx)
}

func (s *instrumentingMiddleware) DismissPopup(ctx context.Context) (err error) {
	defer func(begin time.Time) { s.recordMetrics("DismissPopup", begin, err) }(time.Now())
	return s.svc.DismissPopup(ctx)
}

func (s *instrumentingMiddleware) HandleCommand(ctx context.Context, text string) string {
	defer func(begin time.Time) { s.recordMetrics("HandleCommand", begin, nil) }(time.Now())
	return s.svc.HandleCommand(ctx, text)
}
