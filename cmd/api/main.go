package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qarzdaftar/backend/internal/app"
	"github.com/qarzdaftar/backend/internal/config"
	"github.com/qarzdaftar/backend/internal/logger"
	"github.com/qarzdaftar/backend/internal/metrics"
	"github.com/qarzdaftar/backend/internal/scheduler"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup", "err", err)
		os.Exit(1)
	}

	metrics.Init()

	if err := a.RegisterWebhook(ctx); err != nil {
		// the bot keeps working once Telegram is reachable again
		log.Error("telegram setWebhook", "err", err)
	}

	sched, err := scheduler.New(cfg.CronSchedule, a.Loc, a.Sweep, log)
	if err != nil {
		log.Error("scheduler", "err", err)
		a.Close()
		os.Exit(1)
	}
	sched.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "store", cfg.Store, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := sched.Stop(shutdownCtx); err != nil {
		// a sweep is still using the pool and the database; leave them to exit
		log.Warn("scheduler stop", "err", err)
		return
	}
	a.Close()
}
