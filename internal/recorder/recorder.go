package recorder

import (
	"fmt"
	"time"

	"TradeDeck/internal/model"
)

// ChatEvent is one chat message as it was appended to a conversation.
type ChatEvent struct {
	Conversation string
	Symbol       string
	Message      model.ChatMessage
}

// PredictionEvent is a finished analysis.
type PredictionEvent struct {
	Symbol     string
	Prediction *model.Prediction
}

// FetchEvent is the outcome of one series load.
type FetchEvent struct {
	Symbol   string
	Interval string
	Source   string
	Bars     int
	Duration time.Duration
	Err      error
}

// Outcome is "ok" or "error".
func (e *FetchEvent) Outcome() string {
	if e.Err != nil {
		return "error"
	}
	return "ok"
}

func (e *FetchEvent) errText() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Recorder persists dashboard history for later inspection.
type Recorder interface {
	RecordChat(evt *ChatEvent) error
	RecordPrediction(evt *PredictionEvent) error
	RecordFetch(evt *FetchEvent) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverNone     = ""
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the recorder for driver. An empty driver yields a NoopRecorder.
func Open(driver, dsn string) (Recorder, error) {
	switch driver {
	case DriverNone:
		return NewNoopRecorder(), nil
	case DriverSQLite:
		return NewSQLiteRecorder(dsn)
	case DriverPostgres:
		return NewGormRecorder(dsn)
	default:
		return nil, fmt.Errorf("unknown recorder driver %q", driver)
	}
}
