package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"TradeDeck/internal/analysis"
	"TradeDeck/internal/chart"
	"TradeDeck/internal/collector"
	"TradeDeck/internal/model"
	"TradeDeck/internal/notifier"
	"TradeDeck/internal/recorder"
	"TradeDeck/internal/scheduler"
	"TradeDeck/internal/store"
)

// SeriesLoader loads the chart series for a selection.
type SeriesLoader interface {
	Load(ctx context.Context, stock model.StockRef, tf model.Timeframe) (*collector.Series, error)
	Name() string
}

// Deps are the collaborators of a Dashboard. Delayer, Recorder and Notifier
// are optional.
type Deps struct {
	Store     *store.Store
	Loader    SeriesLoader
	Renderer  *chart.Renderer
	Simulator *analysis.Simulator
	Delayer   *scheduler.Delayer
	Recorder  recorder.Recorder
	Notifier  notifier.Notifier
}

// Options tune the timings of the dashboard.
type Options struct {
	ReplyDelay    time.Duration
	AnalysisDelay time.Duration
	Clock         func() time.Time
}

// Dashboard wires the store to the gateway, the chart renderer, the
// simulator and the chat bot. It reloads the series whenever the selected
// stock or timeframe changes and re-renders the chart whenever its inputs
// change.
type Dashboard struct {
	store    *store.Store
	loader   SeriesLoader
	renderer *chart.Renderer
	sim      *analysis.Simulator
	delayer  *scheduler.Delayer
	rec      recorder.Recorder
	notifier notifier.Notifier
	opts     Options

	conversation string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	loadSeq    uint64
	loadCancel context.CancelFunc
	unsubs     []func()
	started    bool
}

// New creates a Dashboard. Call Start to begin loading.
func New(d Deps, opts Options) *Dashboard {
	if d.Delayer == nil {
		d.Delayer = scheduler.NewDelayer()
	}
	if d.Recorder == nil {
		d.Recorder = recorder.NewNoopRecorder()
	}
	if d.Notifier == nil {
		d.Notifier = notifier.Nop{}
	}
	if d.Simulator == nil {
		d.Simulator = analysis.NewSimulator(nil, nil)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dashboard{
		store:        d.Store,
		loader:       d.Loader,
		renderer:     d.Renderer,
		sim:          d.Simulator,
		delayer:      d.Delayer,
		rec:          d.Recorder,
		notifier:     d.Notifier,
		opts:         opts,
		conversation: uuid.NewString(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

type selectionKey struct {
	symbol, interval string
}

type chartKey struct {
	version    uint64
	indicators string
	interval   string
}

// Start subscribes the load and render observers and loads the initial
// selection.
func (d *Dashboard) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.unsubs = append(d.unsubs,
		store.Observe(d.store, func(s store.State) selectionKey {
			return selectionKey{s.Stocks.Selected.Symbol, s.Timeframe.Selected.Value}
		}, d.onSelectionChange),
		store.Observe(d.store, func(s store.State) chartKey {
			return chartKey{s.Stocks.ChartVersion, strings.Join(s.Indicators.Selected, ","), s.Timeframe.Selected.Value}
		}, d.render),
	)
	d.mu.Unlock()

	st := d.store.State()
	if len(st.Stocks.ChartData) > 0 {
		d.render(st)
	}
	d.reload(st)
}

// Close cancels pending work and tears the chart down.
func (d *Dashboard) Close() error {
	d.mu.Lock()
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
	if d.loadCancel != nil {
		d.loadCancel()
	}
	d.cancel()
	d.mu.Unlock()

	d.delayer.Stop()
	d.wg.Wait()
	if d.renderer != nil {
		return d.renderer.Close()
	}
	return nil
}

// Conversation returns the id of the chat conversation.
func (d *Dashboard) Conversation() string { return d.conversation }

// Store returns the underlying store.
func (d *Dashboard) Store() *store.Store { return d.store }

func (d *Dashboard) State() store.State { return d.store.State() }

func (d *Dashboard) Chart() *chart.Spec {
	if d.renderer == nil {
		return nil
	}
	return d.renderer.Spec()
}

// Refresh reloads the current selection.
func (d *Dashboard) Refresh(_ context.Context) error {
	d.reload(d.store.State())
	return nil
}

// Wait blocks until in-flight loads, replies and notifications finish.
func (d *Dashboard) Wait() { d.wg.Wait() }

// track registers background work with Wait unless the dashboard is closed.
// Close cancels under the same lock, so tracked work always finishes before
// Close returns.
func (d *Dashboard) track() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx.Err() != nil {
		return false
	}
	d.wg.Add(1)
	return true
}

func (d *Dashboard) onSelectionChange(s store.State) {
	if n := d.delayer.Cancel(d.conversation); n > 0 {
		log.Debug().Int("replies", n).Msg("pending bot replies dropped on selection change")
	}
	d.reload(s)
}

func (d *Dashboard) reload(s store.State) {
	if d.loader == nil {
		return
	}
	stock, tf := s.Stocks.Selected, s.Timeframe.Selected

	d.mu.Lock()
	if d.loadCancel != nil {
		d.loadCancel()
	}
	if d.ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.ctx)
	d.loadSeq++
	seq := d.loadSeq
	d.loadCancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer cancel()
		d.load(ctx, seq, stock, tf)
	}()
}

func (d *Dashboard) load(ctx context.Context, seq uint64, stock model.StockRef, tf model.Timeframe) {
	start := time.Now()
	series, err := d.loader.Load(ctx, stock, tf)

	evt := &recorder.FetchEvent{
		Symbol:   stock.Symbol,
		Interval: tf.Value,
		Source:   d.loader.Name(),
		Duration: time.Since(start),
		Err:      err,
	}
	if series != nil {
		evt.Bars = len(series.Bars)
	}
	if ctx.Err() != nil {
		log.Debug().Str("symbol", stock.Symbol).Str("timeframe", tf.Label).Msg("superseded load discarded")
		return
	}
	if rerr := d.rec.RecordFetch(evt); rerr != nil {
		log.Error().Err(rerr).Msg("record fetch")
	}
	if err != nil {
		log.Error().Err(err).Str("symbol", stock.Symbol).Str("timeframe", tf.Label).Msg("series load failed, keeping previous chart")
		return
	}

	d.mu.Lock()
	stale := seq != d.loadSeq
	d.mu.Unlock()
	if stale {
		return
	}

	// the selection may change between the check above and the dispatch
	stillSelected := func(s store.State) bool {
		return s.Stocks.Selected.Symbol == stock.Symbol && s.Timeframe.Selected.Value == tf.Value
	}
	_, applied := d.store.DispatchIf(stillSelected,
		store.SetChartData{Bars: series.Bars},
		store.SetCurrentStockMetaData{Meta: series.Meta},
		store.UpdateStockQuote{Symbol: stock.Symbol, Price: series.Meta.Price, Change: series.Meta.Change},
	)
	if !applied {
		log.Debug().Str("symbol", stock.Symbol).Str("timeframe", tf.Label).Msg("superseded load discarded")
		return
	}
	log.Info().Str("symbol", stock.Symbol).Str("timeframe", tf.Label).Int("bars", len(series.Bars)).Msg("series loaded")
}

func (d *Dashboard) render(s store.State) {
	if d.renderer == nil {
		return
	}
	_, err := d.renderer.Render(s.Stocks.ChartData, s.Indicators.Selected, s.Stocks.Selected.Symbol, s.Timeframe.Selected)
	if err != nil {
		log.Error().Err(err).Msg("chart render failed")
	}
}

func (d *Dashboard) SelectStock(_ context.Context, symbol string) error {
	stock, ok := model.FindStock(d.store.State().Stocks.Available, strings.ToUpper(strings.TrimSpace(symbol)))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStock, symbol)
	}
	d.store.Dispatch(store.SetSelectedStock{Stock: stock})
	return nil
}

func (d *Dashboard) SelectTimeframe(_ context.Context, label string) error {
	tf, ok := model.FindTimeframe(d.store.State().Timeframe.Available, strings.TrimSpace(label))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTimeframe, label)
	}
	d.store.Dispatch(store.SetSelectedTimeframe{Timeframe: tf})
	return nil
}

func (d *Dashboard) ToggleIndicator(_ context.Context, id string) error {
	if !model.IsIndicator(id) {
		return fmt.Errorf("%w: %q", ErrUnknownIndicator, id)
	}
	d.store.Dispatch(store.ToggleIndicator{ID: id})
	return nil
}

func (d *Dashboard) ToggleSidebar(_ context.Context) error {
	d.store.Dispatch(store.ToggleSidebar{})
	return nil
}

func (d *Dashboard) ToggleChat(_ context.Context) error {
	d.store.Dispatch(store.ToggleChat{})
	return nil
}

func (d *Dashboard) SetDraft(_ context.Context, text string) error {
	d.store.Dispatch(store.SetDraft{Text: text})
	return nil
}

func (d *Dashboard) DismissPopup(_ context.Context) error {
	d.store.Dispatch(store.SetShowAnalysisPopup{Show: false})
	return nil
}

func (d *Dashboard) now() string {
	return d.opts.Clock().Format("15:04")
}

// SendChat appends a user message and schedules the bot reply. Blank text is
// ignored.
func (d *Dashboard) SendChat(_ context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	st := d.store.Dispatch(
		store.AddMessage{Message: model.ChatMessage{User: model.UserSelf, Text: text, Time: d.now()}},
		store.SetDraft{Text: ""},
	)
	d.recordChat(st)

	symbol, tf := st.Stocks.Selected.Symbol, st.Timeframe.Selected.Label
	d.delayer.Schedule(d.conversation, d.opts.ReplyDelay, func() {
		if !d.track() {
			return
		}
		defer d.wg.Done()
		reply := fmt.Sprintf("Analysis for %s: Currently analyzing the %s chart patterns.", symbol, tf)
		d.botMessage(reply)
	})
	return nil
}

func (d *Dashboard) botMessage(text string, extra ...store.Action) store.State {
	actions := append(extra, store.AddMessage{Message: model.ChatMessage{User: model.UserBot, Text: text, Time: d.now()}})
	st := d.store.Dispatch(actions...)
	d.recordChat(st)
	return st
}

func (d *Dashboard) recordChat(st store.State) {
	msgs := st.Chat.Messages
	if len(msgs) == 0 {
		return
	}
	evt := &recorder.ChatEvent{Conversation: d.conversation, Symbol: st.Stocks.Selected.Symbol, Message: msgs[len(msgs)-1]}
	if err := d.rec.RecordChat(evt); err != nil {
		log.Error().Err(err).Msg("record chat message")
	}
}

// Analyze runs one prediction for the current selection. It fails with
// analysis.ErrAnalysisInProgress while another run is active and with the
// context error when cancelled during the analysis delay.
func (d *Dashboard) Analyze(ctx context.Context) (*model.Prediction, error) {
	if err := d.sim.Begin(); err != nil {
		return nil, err
	}
	st := d.store.Dispatch(store.StartAnalyzing{})
	stock, tf := st.Stocks.Selected, st.Timeframe.Selected

	timer := time.NewTimer(d.opts.AnalysisDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		d.sim.Abort()
		d.store.Dispatch(store.StopAnalyzing{})
		return nil, ctx.Err()
	case <-d.ctx.Done():
		d.sim.Abort()
		d.store.Dispatch(store.StopAnalyzing{})
		return nil, d.ctx.Err()
	}

	p := d.sim.Resolve(ctx, stock, tf)
	d.botMessage(analysis.Summary(stock.Symbol, p),
		store.SetPrediction{Prediction: p},
		store.StopAnalyzing{},
		store.SetShowAnalysisPopup{Show: true},
	)
	log.Info().Str("symbol", stock.Symbol).Str("trend", string(p.Trend)).Str("confidence", p.Confidence).
		Str("source", string(p.Source)).Msg("analysis complete")

	if err := d.rec.RecordPrediction(&recorder.PredictionEvent{Symbol: stock.Symbol, Prediction: p}); err != nil {
		log.Error().Err(err).Msg("record prediction")
	}
	d.notify(notifier.FormatAnalysis(stock.Symbol, p, d.opts.Clock()))
	return p, nil
}

func (d *Dashboard) notify(text string) {
	if !d.track() {
		return
	}
	go func() {
		defer d.wg.Done()
		if err := d.notifier.Notify(d.ctx, text); err != nil && d.ctx.Err() == nil {
			log.Error().Err(err).Msg("send notification")
		}
	}()
}
