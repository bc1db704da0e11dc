package collector

import (
	"time"

	"TradeDeck/internal/model"
)

// aggregateDaily folds sorted daily bars into one bar per bucket. The bucket
// key is the ISO week or the calendar month of the bar.
func aggregateDaily(daily []model.OHLCV, agg Aggregation) []model.OHLCV {
	if len(daily) == 0 || agg == AggregateNone {
		return daily
	}
	key := func(t time.Time) int {
		if agg == AggregateMonth {
			return t.Year()*100 + int(t.Month())
		}
		y, w := t.ISOWeek()
		return y*100 + w
	}

	var out []model.OHLCV
	cur := daily[0]
	curKey := key(cur.At())
	for _, d := range daily[1:] {
		k := key(d.At())
		if k != curKey {
			out = append(out, cur)
			cur = d
			curKey = k
			continue
		}
		if d.High > cur.High {
			cur.High = d.High
		}
		if d.Low < cur.Low {
			cur.Low = d.Low
		}
		cur.Close = d.Close
		cur.Volume += d.Volume
	}
	return append(out, cur)
}
