package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"TradeDeck/internal/model"
)

// BackendFetcher implements Gateway against the dashboard REST backend.
type BackendFetcher struct {
	BaseURL       string
	Client        *http.Client
	MaxRetries    int
	RetryInterval time.Duration
}

// NewBackendFetcher creates a new fetcher with optional proxy support.
func NewBackendFetcher(baseURL, proxyURL string, timeout time.Duration, maxRetries int) *BackendFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BackendFetcher{
		BaseURL:       baseURL,
		MaxRetries:    maxRetries,
		RetryInterval: 500 * time.Millisecond,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *BackendFetcher) Name() string { return "backend" }

// SeriesURL builds the backend URL for a resolved route.
func (f *BackendFetcher) SeriesURL(symbol string, r Route) string {
	sym := url.PathEscape(symbol)
	if r.Kind == KindIntraday {
		return fmt.Sprintf("%s/api/intraday/%s?interval=%dmin&adjusted=true&extended_hours=false&outputsize=full&datatype=json",
			f.BaseURL, sym, r.Minutes)
	}
	return fmt.Sprintf("%s/api/daily/%s?outputsize=full&datatype=json", f.BaseURL, sym)
}

func (f *BackendFetcher) FetchSeries(ctx context.Context, symbol, interval string) ([]model.OHLCV, error) {
	route, err := ResolveRoute(interval)
	if err != nil {
		return nil, &DataFetchError{Symbol: symbol, Interval: interval, Err: err}
	}

	body, status, err := f.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, f.SeriesURL(symbol, route), nil)
	})
	if err != nil {
		return nil, &DataFetchError{Symbol: symbol, Interval: interval, Status: status, Err: err}
	}

	bars, malformed, err := ParseTimeSeries(body)
	if err != nil {
		return nil, &DataFetchError{Symbol: symbol, Interval: interval, Err: err}
	}
	for _, m := range malformed {
		log.Warn().Err(m).Str("symbol", symbol).Msg("dropping malformed record")
	}
	return aggregateDaily(bars, route.Aggregate), nil
}

func (f *BackendFetcher) FetchPrediction(ctx context.Context, symbol string) (*PredictionPayload, error) {
	payload, err := json.Marshal(map[string]string{"symbol": symbol})
	if err != nil {
		return nil, &PredictionFetchError{Symbol: symbol, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	body, status, err := f.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/api/analyse_prediction", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, &PredictionFetchError{Symbol: symbol, Status: status, Err: err}
	}

	p, err := DecodePrediction(body)
	if err != nil {
		return nil, &PredictionFetchError{Symbol: symbol, Err: err}
	}
	return p, nil
}

// do issues the request built by newReq, retrying transport errors and 5xx
// responses with exponential backoff. 4xx responses fail immediately.
func (f *BackendFetcher) do(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, int, error) {
	var (
		body   []byte
		status int
	)
	op := func() error {
		req, err := newReq()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request %s: %w", req.URL.Path, err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &statusError{Code: resp.StatusCode, Body: string(data)}
			if resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}
		body = data
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.RetryInterval
	var b backoff.BackOff = exp
	if f.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(exp, uint64(f.MaxRetries))
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("backend request failed")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, status, err
	}
	return body, status, nil
}
