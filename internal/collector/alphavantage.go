package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"TradeDeck/internal/model"
)

const timeSeriesPrefix = "Time Series"

// avBar is one entry of an Alpha Vantage style time series.
type avBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

var avTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

// ParseTimeSeries decodes a vendor payload into bars sorted by time. Entries
// that cannot be mapped are returned as MalformedRecordError values and left
// out of the result.
func ParseTimeSeries(body []byte) ([]model.OHLCV, []error, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, nil, fmt.Errorf("decode payload: %w", err)
	}

	key := ""
	keys := make([]string, 0, len(root))
	for k := range root {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, timeSeriesPrefix) {
			key = k
			break
		}
	}
	if key == "" {
		return nil, nil, ErrNoTimeSeries
	}

	var series map[string]avBar
	if err := json.Unmarshal(root[key], &series); err != nil {
		return nil, nil, fmt.Errorf("decode %q: %w", key, err)
	}

	bars := make([]model.OHLCV, 0, len(series))
	var malformed []error
	for ts, v := range series {
		bar, err := toBar(ts, v)
		if err != nil {
			malformed = append(malformed, &MalformedRecordError{Key: ts, Err: err})
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })
	return dedupe(bars), malformed, nil
}

func toBar(ts string, v avBar) (model.OHLCV, error) {
	t, err := parseTimestamp(ts)
	if err != nil {
		return model.OHLCV{}, err
	}
	fields := [...]string{v.Open, v.High, v.Low, v.Close}
	var vals [4]float64
	for i, f := range fields {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return model.OHLCV{}, fmt.Errorf("parse price: %w", err)
		}
	}
	// volumes are whole shares; fractional or unparsable values count as zero
	vol, err := strconv.ParseFloat(strings.TrimSpace(v.Volume), 64)
	if err != nil || math.IsNaN(vol) || math.IsInf(vol, 0) {
		vol = 0
	}
	return model.OHLCV{
		Time:   t.Unix(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: math.Trunc(vol),
	}, nil
}

func parseTimestamp(ts string) (time.Time, error) {
	for _, layout := range avTimeLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid date")
}

// dedupe drops bars sharing a timestamp with their predecessor. Input must be sorted.
func dedupe(bars []model.OHLCV) []model.OHLCV {
	if len(bars) < 2 {
		return bars
	}
	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Time == out[len(out)-1].Time {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
