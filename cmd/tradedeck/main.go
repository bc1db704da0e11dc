package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"TradeDeck/internal/analysis"
	"TradeDeck/internal/chart"
	"TradeDeck/internal/collector"
	"TradeDeck/internal/config"
	"TradeDeck/internal/dashboard"
	"TradeDeck/internal/notifier"
	"TradeDeck/internal/recorder"
	"TradeDeck/internal/scheduler"
	"TradeDeck/internal/store"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "tradedeck",
	Short: "Stock trading dashboard with charts, indicators and trend analysis",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cfgPath == "" {
			cfgPath = "configs/config.yaml"
			if v := os.Getenv("CONFIG_PATH"); v != "" {
				cfgPath = v
			}
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default configs/config.yaml or $CONFIG_PATH)")
	rootCmd.AddCommand(serveCmd, fetchCmd, analyzeCmd, panelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the config and sets up the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	setupLogger(cfg)
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func newGateway(cfg *config.Config) collector.Gateway {
	switch cfg.Gateway.Source {
	case config.SourceBackend:
		return collector.NewBackendFetcher(cfg.Gateway.BaseURL, cfg.Proxy, cfg.Gateway.Timeout, cfg.Gateway.MaxRetries)
	case config.SourceMock:
		return &collector.MockGateway{Price: cfg.Gateway.MockPrice}
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

// app is everything the subcommands share.
type app struct {
	cfg   *config.Config
	col   *collector.Collector
	cache *collector.CachedFetcher
	store *store.Store
	dash  *dashboard.Dashboard
	svc   dashboard.Service
	rec   recorder.Recorder
	tg    *notifier.TelegramNotifier
	unsub []func()
}

// newApp wires the dashboard. persist controls whether preferences are
// restored from and saved to disk.
func newApp(cfg *config.Config, persist bool) (*app, error) {
	gw := newGateway(cfg)
	log.Info().Str("source", gw.Name()).Msg("data source selected")

	a := &app{cfg: cfg}
	if cfg.Cache.Enabled {
		a.cache = collector.NewCachedFetcher(gw, cfg.Cache.IntradayTTL, cfg.Cache.DailyTTL)
	}
	a.col = collector.NewCollector(gw, a.cache)

	initial := store.InitialState()
	if persist {
		prefs, err := store.LoadPreferences(cfg.Store.StateFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Store.StateFile).Msg("failed to load preferences, using defaults")
		} else if prefs != nil {
			initial = prefs.Apply(initial)
		}
	}
	a.store = store.New(initial)
	if persist {
		a.unsub = append(a.unsub, store.PersistOnChange(a.store, cfg.Store.StateFile))
	}

	rec, err := recorder.Open(cfg.Recorder.Driver, cfg.Recorder.DSN)
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.Recorder.Driver).Msg("init recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	}
	a.rec = rec

	var n notifier.Notifier = notifier.Nop{}
	if cfg.Telegram.BotToken != "" {
		a.tg = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = a.tg
	}

	a.dash = dashboard.New(dashboard.Deps{
		Store:     a.store,
		Loader:    a.col,
		Renderer:  chart.NewRenderer(chart.NewFramePool().New),
		Simulator: analysis.NewSimulator(a.col, nil),
		Delayer:   scheduler.NewDelayer(),
		Recorder:  a.rec,
		Notifier:  n,
	}, dashboard.Options{
		ReplyDelay:    cfg.Chat.ReplyDelay,
		AnalysisDelay: cfg.Analysis.Delay,
	})
	a.svc = a.dash
	return a, nil
}

// instrument wraps the service with logging and metrics.
func (a *app) instrument(reg prometheus.Registerer) {
	a.svc = dashboard.NewLoggingMiddleware(log.Logger, a.svc)
	a.svc = dashboard.NewInstrumentingMiddleware(
		dashboard.NewMetrics(reg, a.cfg.Metrics.Namespace, a.cfg.Metrics.Subsystem), a.svc)
}

func (a *app) close() {
	for _, u := range a.unsub {
		u()
	}
	if err := a.dash.Close(); err != nil {
		log.Warn().Err(err).Msg("close dashboard")
	}
	if err := a.rec.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}
