package collector

import (
	"fmt"
	"strconv"

	"TradeDeck/internal/model"
)

// Endpoint kinds on the backend.
const (
	KindIntraday = "intraday"
	KindDaily    = "daily"
)

// Aggregation applied to daily bars after the fetch.
type Aggregation int

const (
	AggregateNone Aggregation = iota
	AggregateWeek
	AggregateMonth
)

// Route is the resolved backend call for an interval code.
type Route struct {
	Kind      string
	Minutes   int // intraday bar size
	Aggregate Aggregation
}

// ResolveRoute maps an interval code to its backend route. Codes below one day
// are intraday minutes; 1440, 10080 and 43200 are daily, weekly and monthly.
// Anything else is an error.
func ResolveRoute(interval string) (Route, error) {
	switch interval {
	case model.IntervalDaily:
		return Route{Kind: KindDaily}, nil
	case model.IntervalWeekly:
		return Route{Kind: KindDaily, Aggregate: AggregateWeek}, nil
	case model.IntervalMonthly:
		return Route{Kind: KindDaily, Aggregate: AggregateMonth}, nil
	}
	n, err := strconv.Atoi(interval)
	if err != nil || n <= 0 || n >= 1440 {
		return Route{}, fmt.Errorf("%w: %q", ErrUnsupportedInterval, interval)
	}
	return Route{Kind: KindIntraday, Minutes: n}, nil
}

