package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedInterval is returned for interval codes with no backend route.
	ErrUnsupportedInterval = errors.New("unsupported interval")
	// ErrNoTimeSeries means the vendor payload carried no "Time Series" key.
	ErrNoTimeSeries = errors.New("time series data not found in response")
	// ErrPredictionUnsupported is returned by sources without a prediction endpoint.
	ErrPredictionUnsupported = errors.New("prediction not supported by source")
)

// DataFetchError reports a failed or malformed series fetch.
type DataFetchError struct {
	Symbol   string
	Interval string
	Status   int
	Err      error
}

func (e *DataFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch series %s@%s: status %d: %v", e.Symbol, e.Interval, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch series %s@%s: %v", e.Symbol, e.Interval, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// PredictionFetchError reports an unreachable or failing prediction backend.
type PredictionFetchError struct {
	Symbol string
	Status int
	Err    error
}

func (e *PredictionFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch prediction %s: status %d: %v", e.Symbol, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch prediction %s: %v", e.Symbol, e.Err)
}

func (e *PredictionFetchError) Unwrap() error { return e.Err }

// MalformedRecordError describes one vendor entry that could not be mapped to a bar.
// It is never fatal: the entry is dropped.
type MalformedRecordError struct {
	Key string
	Err error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %q: %v", e.Key, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// statusError carries a non-2xx response through the retry loop.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.Code, e.Body)
}
