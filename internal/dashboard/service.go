package dashboard

import (
	"context"
	"errors"

	"TradeDeck/internal/chart"
	"TradeDeck/internal/model"
	"TradeDeck/internal/store"
)

var (
	ErrUnknownStock     = errors.New("unknown stock")
	ErrUnknownTimeframe = errors.New("unknown timeframe")
	ErrUnknownIndicator = errors.New("unknown indicator")
)

// Service is the set of user operations the dashboard offers to its
// transports (HTTP, websocket, Telegram commands, CLI).
type Service interface {
	State() store.State
	Chart() *chart.Spec
	SelectStock(ctx context.Context, symbol string) error
	SelectTimeframe(ctx context.Context, label string) error
	ToggleIndicator(ctx context.Context, id string) error
	ToggleSidebar(ctx context.Context) error
	ToggleChat(ctx context.Context) error
	SetDraft(ctx context.Context, text string) error
	SendChat(ctx context.Context, text string) error
	Analyze(ctx context.Context) (*model.Prediction, error)
	DismissPopup(ctx context.Context) error
	HandleCommand(ctx context.Context, text string) string
}
