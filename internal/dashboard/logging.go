package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"TradeDeck/internal/chart"
	"TradeDeck/internal/model"
	"TradeDeck/internal/store"
)

// loggingMiddleware wraps Service and logs every operation.
type loggingMiddleware struct {
	logger zerolog.Logger
	svc    Service
}

// NewLoggingMiddleware returns svc with every mutating call logged to logger.
func NewLoggingMiddleware(logger zerolog.Logger, svc Service) Service {
	return &loggingMiddleware{logger: logger, svc: svc}
}

func (s *loggingMiddleware) log(method string, begin time.Time, err error) *zerolog.Event {
	evt := s.logger.Debug()
	if err != nil {
		evt = s.logger.Error().Err(err)
	}
	return evt.Str("method", method).Dur("elapsed", time.Since(begin))
}

func (s *loggingMiddleware) State() store.State { return s.svc.State() }

func (s *loggingMiddleware) Chart() *chart.Spec { return s.svc.Chart() }

func (s *loggingMiddleware) SelectStock(ctx context.Context, symbol string) (err error) {
	defer func(begin time.Time) { s.log("SelectStock", begin, err).Str("symbol", symbol).Send() }(time.Now())
	return s.svc.SelectStock(ctx, symbol)
}

func (s *loggingMiddleware) SelectTimeframe(ctx context.Context, label string) (err error) {
	defer func(begin time.Time) { s.log("SelectTimeframe", begin, err).Str("label", label).Send() }(time.Now())
	return s.svc.SelectTimeframe(ctx, label)
}

func (s *loggingMiddleware) ToggleIndicator(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) { s.log("ToggleIndicator", begin, err).Str("id", id).Send() }(time.Now())
	return s.svc.ToggleIndicator(ctx, id)
}

func (s *loggingMiddleware) ToggleSidebar(ctx context.Context) (err error) {
	defer func(begin time.Time) { s.log("ToggleSidebar", begin, err).Send() }(time.Now())
	return s.svc.ToggleSidebar(ctx)
}

func (s *loggingMiddleware) ToggleChat(ctx context.Context) (err error) {
	defer func(begin time.Time) { s.log("ToggleChat", begin, err).Send() }(time.Now())
	return s.svc.ToggleChat(ctx)
}

func (s *loggingMiddleware) SetDraft(ctx context.Context, text string) (err error) {
	defer func(begin time.Time) { s.log("SetDraft", begin, err).Int("len", len(text)).Send() }(time.Now())
	return s.svc.SetDraft(ctx, text)
}

func (s *loggingMiddleware) SendChat(ctx context.Context, text string) (err error) {
	defer func(begin time.Time) { s.log("SendChat", begin, err).Int("len", len(text)).Send() }(time.Now())
	return s.svc.SendChat(ctx, text)
}

func (s *loggingMiddleware) Analyze(ctx context.Context) (p *model.Prediction, err error) {
	defer func(begin time.Time) {
		evt := s.log("Analyze", begin, err)
		if p != nil {
			evt = evt.Str("trend", string(p.Trend)).Str("confidence", p.Confidence)
		}
		evt.Send()
	}(time.Now())
	return s.svc.Analyze(ctx)
}

func (s *loggingMiddleware) DismissPopup(ctx context.Context) (err error) {
	defer func(begin time.Time) { s.log("DismissPopup", begin, err).Send() }(time.Now())
	return s.svc.DismissPopup(ctx)
}

func (s *loggingMiddleware) HandleCommand(ctx context.Context, text string) (reply string) {
	defer func(begin time.Time) { s.log("HandleCommand", begin, nil).Str("command", text).Send() }(time.Now())
	return s.svc.HandleCommand(ctx, text)
}
