package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"TradeDeck/internal/analysis"
	"TradeDeck/internal/chart"
	"TradeDeck/internal/collector"
	"TradeDeck/internal/model"
	"TradeDeck/internal/recorder"
	"TradeDeck/internal/store"
)

var fixedNow = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func testBars(n int, base float64) []model.OHLCV {
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := base + float64(i)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute).Unix(),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

type memRecorder struct {
	mu          sync.Mutex
	chats       []*recorder.ChatEvent
	predictions []*recorder.PredictionEvent
	fetches     []*recorder.FetchEvent
}

func (r *memRecorder) RecordChat(e *recorder.ChatEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, e)
	return nil
}

func (r *memRecorder) RecordPrediction(e *recorder.PredictionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, e)
	return nil
}

func (r *memRecorder) RecordFetch(e *recorder.FetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, e)
	return nil
}

func (r *memRecorder) Close() error { return nil }

type fixture struct {
	dash *Dashboard
	gw   *collector.MockGateway
	pool *chart.FramePool
	rec  *memRecorder
}

func newFixture(t *testing.T, gw *collector.MockGateway, opts Options, n *mockNotifier) *fixture {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return fixedNow }
	}
	pool := chart.NewFramePool()
	rec := &memRecorder{}
	d := New(Deps{
		Store:     store.New(store.InitialState()),
		Loader:    collector.NewCollector(gw, nil),
		Renderer:  chart.NewRenderer(pool.New),
		Simulator: analysis.NewSimulator(gw, nil),
		Recorder:  rec,
		Notifier:  n,
	}, opts)
	t.Cleanup(func() { d.Close() })
	return &fixture{dash: d, gw: gw, pool: pool, rec: rec}
}

func (f *fixture) waitBars(t *testing.T, n int) store.State {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.dash.State().Stocks.ChartData) == n
	}, 2*time.Second, 5*time.Millisecond)
	return f.dash.State()
}

func quietNotifier() *mockNotifier {
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	return n
}

func TestStart_LoadsInitialSelection(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(30, 100)}, Options{}, quietNotifier())
	f.dash.Start()

	st := f.waitBars(t, 30)
	assert.Equal(t, "AAPL", st.Stocks.Meta.Symbol)
	assert.Equal(t, "129.00", st.Stocks.Meta.Price)
	assert.Equal(t, "+0.78%", st.Stocks.Meta.Change)
	assert.Equal(t, "129.00", st.Stocks.Selected.Price)

	require.Eventually(t, func() bool { return f.dash.Chart() != nil }, time.Second, 5*time.Millisecond)
	spec := f.dash.Chart()
	assert.Equal(t, "AAPL", spec.Symbol)
	assert.Equal(t, "5m", spec.Timeframe)
	assert.Len(t, spec.Candles, 30)
	assert.Equal(t, 1, f.pool.Live())

	f.dash.Wait()
	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	require.Len(t, f.rec.fetches, 1)
	assert.Equal(t, "5", f.rec.fetches[0].Interval)
	assert.Equal(t, 30, f.rec.fetches[0].Bars)
	assert.Equal(t, "ok", f.rec.fetches[0].Outcome())
}

func TestSelectStock(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(30, 100)}, Options{}, quietNotifier())
	f.dash.Start()
	f.waitBars(t, 30)

	err := f.dash.SelectStock(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownStock)

	require.NoError(t, f.dash.SelectStock(context.Background(), "msft"))
	assert.Equal(t, "MSFT", f.dash.State().Stocks.Selected.Symbol)
	require.Eventually(t, func() bool {
		return f.dash.State().Stocks.Meta.Symbol == "MSFT"
	}, time.Second, 5*time.Millisecond)

	series, _ := f.gw.Calls()
	assert.Equal(t, 2, series)
}

func TestSelectTimeframe(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(30, 100)}, Options{}, quietNotifier())
	f.dash.Start()
	f.waitBars(t, 30)

	assert.ErrorIs(t, f.dash.SelectTimeframe(context.Background(), "2h"), ErrUnknownTimeframe)

	require.NoError(t, f.dash.SelectTimeframe(context.Background(), "1D"))
	assert.Equal(t, "1440", f.dash.State().Timeframe.Selected.Value)
	require.Eventually(t, func() bool {
		series, _ := f.gw.Calls()
		return series == 2
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		spec := f.dash.Chart()
		return spec != nil && spec.Timeframe == "1D"
	}, time.Second, 5*time.Millisecond)
}

func TestLoadFailureKeepsChart(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(30, 100)}, Options{}, quietNotifier())
	f.dash.Start()
	before := f.waitBars(t, 30)
	f.dash.Wait()

	f.gw.SeriesErr = errors.New("upstream 503")
	require.NoError(t, f.dash.SelectStock(context.Background(), "GOOGL"))
	f.dash.Wait()

	after := f.dash.State()
	assert.Equal(t, before.Stocks.ChartData, after.Stocks.ChartData)
	assert.Equal(t, before.Stocks.ChartVersion, after.Stocks.ChartVersion)
	assert.Equal(t, "AAPL", after.Stocks.Meta.Symbol)

	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	require.Len(t, f.rec.fetches, 2)
	assert.Equal(t, "error", f.rec.fetches[1].Outcome())
}

// gatedLoader serves testBars per symbol. Loads of a gated symbol block until
// the gate closes, whatever the context says.
type gatedLoader struct {
	gates   map[string]chan struct{}
	fail    map[string]bool
	started chan string
}

func (g *gatedLoader) Name() string { return "gated" }

func (g *gatedLoader) Load(_ context.Context, stock model.StockRef, tf model.Timeframe) (*collector.Series, error) {
	select {
	case g.started <- stock.Symbol:
	default:
	}
	if gate, ok := g.gates[stock.Symbol]; ok {
		<-gate
	}
	if g.fail[stock.Symbol] {
		return nil, errors.New("upstream 503")
	}
	bars := testBars(10, 300)
	return &collector.Series{
		Symbol:   stock.Symbol,
		Interval: tf.Value,
		Bars:     bars,
		Meta:     collector.QuoteFromBars(stock, bars),
	}, nil
}

func newLoaderDashboard(t *testing.T, l SeriesLoader) *Dashboard {
	t.Helper()
	d := New(Deps{
		Store:    store.New(store.InitialState()),
		Loader:   l,
		Renderer: chart.NewRenderer(chart.NewFramePool().New),
		Recorder: &memRecorder{},
	}, Options{Clock: func() time.Time { return fixedNow }})
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSupersededLoadNeverApplied(t *testing.T) {
	gate := make(chan struct{})
	l := &gatedLoader{
		gates:   map[string]chan struct{}{"AAPL": gate},
		fail:    map[string]bool{"GOOGL": true},
		started: make(chan string, 4),
	}
	d := newLoaderDashboard(t, l)
	d.Start()
	require.Equal(t, "AAPL", <-l.started)

	require.NoError(t, d.SelectStock(context.Background(), "GOOGL"))
	require.Equal(t, "GOOGL", <-l.started)
	close(gate)
	d.Wait()

	st := d.State()
	assert.Equal(t, "GOOGL", st.Stocks.Selected.Symbol)
	assert.Empty(t, st.Stocks.ChartData)
	assert.Zero(t, st.Stocks.ChartVersion)
	assert.Equal(t, "205.78", st.Stocks.Meta.Price)
	assert.Equal(t, "205.78", st.Stocks.Available[0].Price)
}

func TestLoadDropsResultForChangedSelection(t *testing.T) {
	l := &gatedLoader{started: make(chan string, 4)}
	d := newLoaderDashboard(t, l)
	tf := d.State().Timeframe.Selected
	aapl, _ := model.FindStock(model.Stocks(), "AAPL")
	msft, _ := model.FindStock(model.Stocks(), "MSFT")

	// selection moves on without a reload, so the sequence check still passes
	d.store.Dispatch(store.SetSelectedStock{Stock: msft})
	d.mu.Lock()
	seq := d.loadSeq
	d.mu.Unlock()

	d.load(context.Background(), seq, aapl, tf)
	st := d.State()
	assert.Empty(t, st.Stocks.ChartData)
	assert.Equal(t, "205.78", st.Stocks.Available[0].Price)

	d.load(context.Background(), seq, msft, tf)
	st = d.State()
	assert.Len(t, st.Stocks.ChartData, 10)
	assert.Equal(t, "MSFT", st.Stocks.Meta.Symbol)
}

func TestToggleIndicator_RerendersChart(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(30, 100)}, Options{}, quietNotifier())
	f.dash.Start()
	f.waitBars(t, 30)
	f.dash.Wait()
	require.NotNil(t, f.dash.Chart())

	assert.ErrorIs(t, f.dash.ToggleIndicator(context.Background(), "macd"), ErrUnknownIndicator)

	require.NoError(t, f.dash.ToggleIndicator(context.Background(), model.IndicatorEMA))
	require.NoError(t, f.dash.ToggleIndicator(context.Background(), model.IndicatorBollinger))

	spec := f.dash.Chart()
	require.NotNil(t, spec)
	want := map[string]int{"ema": 30 - 13, "bollinger_upper": 30 - 19, "bollinger_lower": 30 - 19}
	var ids []string
	for _, l := range spec.Overlays {
		ids = append(ids, l.ID)
		assert.Len(t, l.Points, want[l.ID], l.ID)
	}
	assert.Equal(t, []string{"ema", "bollinger_upper", "bollinger_lower"}, ids)
	assert.Equal(t, 1, f.pool.Live())

	require.NoError(t, f.dash.ToggleIndicator(context.Background(), model.IndicatorEMA))
	assert.Len(t, f.dash.Chart().Overlays, 2)
}

func TestPanelToggles(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{}, quietNotifier())
	ctx := context.Background()

	require.NoError(t, f.dash.ToggleSidebar(ctx))
	require.NoError(t, f.dash.ToggleChat(ctx))
	require.NoError(t, f.dash.SetDraft(ctx, "hel"))
	st := f.dash.State()
	assert.False(t, st.Indicators.SidebarOpen)
	assert.False(t, st.Chat.Open)
	assert.Equal(t, "hel", st.Chat.Draft)
}

func TestSendChat_BotReply(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{ReplyDelay: 20 * time.Millisecond}, quietNotifier())
	ctx := context.Background()

	require.NoError(t, f.dash.SetDraft(ctx, "what about AAPL?"))
	require.NoError(t, f.dash.SendChat(ctx, "   "))
	assert.Empty(t, f.dash.State().Chat.Messages)

	require.NoError(t, f.dash.SendChat(ctx, " what about AAPL? "))
	st := f.dash.State()
	require.Len(t, st.Chat.Messages, 1)
	assert.Equal(t, model.ChatMessage{ID: 1, User: "You", Text: "what about AAPL?", Time: "14:30"}, st.Chat.Messages[0])
	assert.Empty(t, st.Chat.Draft)

	require.Eventually(t, func() bool { return len(f.dash.State().Chat.Messages) == 2 }, time.Second, 5*time.Millisecond)
	reply := f.dash.State().Chat.Messages[1]
	assert.Equal(t, 2, reply.ID)
	assert.Equal(t, "TradeBot", reply.User)
	assert.Equal(t, "Analysis for AAPL: Currently analyzing the 5m chart patterns.", reply.Text)

	f.dash.Wait()
	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	require.Len(t, f.rec.chats, 2)
	assert.Equal(t, f.dash.Conversation(), f.rec.chats[0].Conversation)
}

// blockingRecorder holds bot messages until released.
type blockingRecorder struct {
	memRecorder
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRecorder) RecordChat(e *recorder.ChatEvent) error {
	if e.Message.User == model.UserBot {
		close(r.entered)
		<-r.release
	}
	return r.memRecorder.RecordChat(e)
}

func TestClose_WaitsForFiredReply(t *testing.T) {
	rec := &blockingRecorder{entered: make(chan struct{}), release: make(chan struct{})}
	d := New(Deps{
		Store:    store.New(store.InitialState()),
		Recorder: rec,
	}, Options{ReplyDelay: time.Millisecond, Clock: func() time.Time { return fixedNow }})

	require.NoError(t, d.SendChat(context.Background(), "hello"))
	<-rec.entered

	closed := make(chan struct{})
	go func() {
		_ = d.Close()
		close(closed)
	}()
	assert.Never(t, func() bool {
		select {
		case <-closed:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(rec.release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.chats, 2)
}

func TestReplyAfterCloseIsDropped(t *testing.T) {
	rec := &memRecorder{}
	d := New(Deps{Store: store.New(store.InitialState()), Recorder: rec}, Options{})
	require.NoError(t, d.Close())

	assert.False(t, d.track())
	d.notify("late")
	d.Wait()
	assert.Empty(t, d.State().Chat.Messages)
}

func TestSendChat_ReplyCancelledByStockChange(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{ReplyDelay: 80 * time.Millisecond}, quietNotifier())
	f.dash.Start()
	ctx := context.Background()

	require.NoError(t, f.dash.SendChat(ctx, "hi"))
	require.NoError(t, f.dash.SelectStock(ctx, "AMZN"))

	time.Sleep(200 * time.Millisecond)
	assert.Len(t, f.dash.State().Chat.Messages, 1)
}

func TestAnalyze_Backend(t *testing.T) {
	gw := &collector.MockGateway{
		Bars: testBars(5, 100),
		Prediction: &collector.PredictionPayload{Prediction: collector.PredictionData{
			Direction: "Bearish", BullishProbability: 0.2, PredictedPrice: 100,
		}},
	}
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "BEARISH") && strings.Contains(text, "AAPL")
	})).Return(nil).Once()
	f := newFixture(t, gw, Options{}, n)

	p, err := f.dash.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.TrendBearish, p.Trend)
	assert.Equal(t, "80.0", p.Confidence)
	assert.Equal(t, "100.00", p.TargetPrice)

	st := f.dash.State()
	assert.False(t, st.Analysis.IsAnalyzing)
	assert.True(t, st.Analysis.ShowPopup)
	assert.Equal(t, p, st.Analysis.Prediction)
	require.Len(t, st.Chat.Messages, 1)
	assert.Equal(t,
		"Analysis complete for AAPL: BEARISH outlook with 80.0% confidence. Target price: $100.00 within this 5m timeframe.",
		st.Chat.Messages[0].Text)
	assert.Equal(t, "TradeBot", st.Chat.Messages[0].User)

	require.NoError(t, f.dash.DismissPopup(context.Background()))
	assert.False(t, f.dash.State().Analysis.ShowPopup)

	f.dash.Wait()
	n.AssertExpectations(t)
	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	require.Len(t, f.rec.predictions, 1)
	assert.Equal(t, "AAPL", f.rec.predictions[0].Symbol)
}

func TestAnalyze_FallbackWhenBackendFails(t *testing.T) {
	gw := &collector.MockGateway{Bars: testBars(5, 100), PredictionErr: errors.New("connection refused")}
	f := newFixture(t, gw, Options{}, quietNotifier())

	p, err := f.dash.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, p.Source)
	assert.Contains(t, []model.Trend{model.TrendBullish, model.TrendBearish}, p.Trend)
}

func TestAnalyze_RejectsConcurrentRun(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{AnalysisDelay: 150 * time.Millisecond}, quietNotifier())

	done := make(chan error, 1)
	go func() {
		_, err := f.dash.Analyze(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.dash.State().Analysis.IsAnalyzing }, time.Second, 2*time.Millisecond)

	_, err := f.dash.Analyze(context.Background())
	assert.ErrorIs(t, err, analysis.ErrAnalysisInProgress)
	assert.NoError(t, <-done)
	assert.False(t, f.dash.State().Analysis.IsAnalyzing)
}

func TestAnalyze_Cancelled(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{AnalysisDelay: time.Minute}, quietNotifier())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.dash.Analyze(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	st := f.dash.State()
	assert.False(t, st.Analysis.IsAnalyzing)
	assert.Nil(t, st.Analysis.Prediction)
	assert.Equal(t, analysis.PhaseIdle, f.dash.sim.Phase())
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{ReplyDelay: time.Hour}, quietNotifier())
	ctx := context.Background()

	assert.Equal(t, "Selected MSFT (Microsoft Corporation)", f.dash.HandleCommand(ctx, "/stock msft"))
	assert.Contains(t, f.dash.HandleCommand(ctx, "/stock XYZ"), "Unknown stock XYZ. Available: AAPL, GOOGL, MSFT, AMZN")
	assert.Equal(t, "Usage: /stock SYMBOL", f.dash.HandleCommand(ctx, "/stock"))
	assert.Equal(t, "Timeframe set to 1H", f.dash.HandleCommand(ctx, "/timeframe 1H"))
	assert.Contains(t, f.dash.HandleCommand(ctx, "/timeframe 4H"), "Unknown timeframe")
	assert.Contains(t, f.dash.HandleCommand(ctx, "/status"), "Timeframe: 1H")
	assert.Contains(t, f.dash.HandleCommand(ctx, "/bogus"), "/analyze")
	assert.Equal(t, "", f.dash.HandleCommand(ctx, "   "))

	assert.Equal(t, "", f.dash.HandleCommand(ctx, "is it a buy?"))
	msgs := f.dash.State().Chat.Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "is it a buy?", msgs[0].Text)

	reply := f.dash.HandleCommand(ctx, "/analyze")
	assert.True(t, strings.HasPrefix(reply, "Analysis complete for MSFT: "), reply)
}

func TestLoggingMiddleware(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{}, quietNotifier())
	var buf bytes.Buffer
	svc := NewLoggingMiddleware(zerolog.New(&buf).Level(zerolog.DebugLevel), f.dash)

	require.NoError(t, svc.SelectTimeframe(context.Background(), "15m"))
	require.Error(t, svc.SelectStock(context.Background(), "NOPE"))

	out := buf.String()
	assert.Contains(t, out, `"method":"SelectTimeframe"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"symbol":"NOPE"`)
	assert.Equal(t, "15m", svc.State().Timeframe.Selected.Label)
}

func TestInstrumentingMiddleware(t *testing.T) {
	f := newFixture(t, &collector.MockGateway{Bars: testBars(5, 100)}, Options{}, quietNotifier())
	reg := prometheus.NewRegistry()
	svc := NewInstrumentingMiddleware(NewMetrics(reg, "tradedeck", "test"), f.dash)

	require.NoError(t, svc.ToggleSidebar(context.Background()))
	require.NoError(t, svc.ToggleSidebar(context.Background()))
	require.Error(t, svc.ToggleIndicator(context.Background(), "nope"))

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "tradedeck_test_request_count" {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, lp := range m.GetLabel() {
				key += lp.GetName() + "=" + lp.GetValue() + " "
			}
			counts[strings.TrimSpace(key)] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, counts["error=false method=ToggleSidebar"])
	assert.Equal(t, 1.0, counts["error=true method=ToggleIndicator"])
}
