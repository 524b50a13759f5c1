package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KimiAn12/StartUpIdea/internal/bootstrap"
	"github.com/KimiAn12/StartUpIdea/internal/shared/config"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		telemetry.Error("api.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		telemetry.Info("api.listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.Analyses.RunSweeper(gctx, cfg.SweepInterval, cfg.StuckAfter)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	code := 0
	if err := g.Wait(); err != nil {
		telemetry.Error("api.stopped", map[string]any{"error": err.Error()})
		code = 1
	}
	if err := app.Close(); err != nil {
		telemetry.Warn("api.close_failed", map[string]any{"error": err.Error()})
	}
	telemetry.Info("api.shutdown_complete", nil)
	if code != 0 {
		telemetry.Sync()
		os.Exit(code)
	}
}
