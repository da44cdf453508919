package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"filescan/internal/api"
	"filescan/internal/api/handler/v1handler"
	"filescan/internal/config"
	"filescan/internal/history"
	"filescan/internal/poll"
	"filescan/internal/progress"
	"filescan/internal/ratelimit"
	"filescan/internal/session"
	"filescan/pkg/logger"
	"filescan/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, cfg *config.Config, deps api.Deps) func(ctx context.Context) {
	server := api.NewServer(deps, api.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the API server and the history watcher",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hist := history.New(nil)
			if cfg.History.Enabled {
				strg, closeStrg := getStorage(ctx, cfg)
				defer closeStrg()
				hist = history.New(strg)

				go hist.Watch(ctx, cfg.History.WatchInterval)
			} else {
				logger.Warn(ctx, "history persistence is disabled, scans will not be recorded")
			}

			mp, err := api.NewMeterProvider()
			if err != nil {
				logger.Fatal(ctx, "could not create meter provider", zap.Error(err))
			}

			gateway := getGateway(cfg)
			ctrl, err := session.New(gateway,
				poll.New(gateway, cfg.Poll.Interval, cfg.Poll.MaxAttempts),
				ratelimit.New(gateway, cfg.Session.CountdownTick),
				hist,
				progress.New(),
				metrics.Meter(mp),
				session.NewOptions(cfg))
			if err != nil {
				logger.Fatal(ctx, "could not create session controller", zap.Error(err))
			}
			defer ctrl.Reset()

			stopWebserver := setupServer(ctx, cfg, api.Deps{
				Deps: v1handler.Deps{
					Session: ctrl,
					History: hist,
					Gateway: gateway,
				},
			})

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)
		},
	}

	return cmd
}
