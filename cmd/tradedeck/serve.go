package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"TradeDeck/internal/scheduler"
	"TradeDeck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP and websocket server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log.Info().Msg("TradeDeck starting")

		a, err := newApp(cfg, true)
		if err != nil {
			return err
		}
		defer a.close()
		a.instrument(prometheus.DefaultRegisterer)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hub := server.NewHub()
		a.unsub = append(a.unsub, hub.Attach(a.store))
		a.dash.Start()

		var purger scheduler.Purger
		if a.cache != nil {
			purger = a.cache
		}
		sched := scheduler.NewScheduler(ctx, a.dash, purger)
		if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.PurgeCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		srv := server.New(ctx, a.svc, hub, server.Options{Metrics: promhttp.Handler(), Mode: cfg.Server.GinMode})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return hub.Run(gctx) })
		g.Go(func() error { return srv.Run(gctx, cfg.Server.Addr) })
		if a.tg != nil && cfg.Telegram.Polling {
			g.Go(func() error {
				a.tg.StartPolling(gctx, a.svc.HandleCommand)
				return nil
			})
			log.Info().Msg("telegram polling started")
		}

		log.Info().Str("addr", cfg.Server.Addr).Msg("TradeDeck is running. Press Ctrl+C to stop.")
		err = g.Wait()
		log.Info().Msg("TradeDeck stopped")
		return err
	},
}
