package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitflow-backend/internal/bootstrap"
	"fitflow-backend/internal/recovery"
	"fitflow-backend/internal/shared/config"
	"fitflow-backend/internal/shared/server"
	"fitflow-backend/internal/shared/telemetry"
)

const shutdownTimeout = 20 * time.Second

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel, cfg.LogFormat)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("api.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.Hub.Run(ctx)
	if cfg.RulesFile != "" {
		go func() {
			if err := recovery.Watch(ctx, cfg.RulesFile, app.Scorers); err != nil {
				telemetry.Warn("api.rules_watch_failed", map[string]any{"path": cfg.RulesFile, "error": err.Error()})
			}
		}()
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("api.listening", map[string]any{
			"addr":      srv.Addr,
			"env":       cfg.Env,
			"log_store": app.Config.LogStore,
			"queue":     app.Queue != nil,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("api.server_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	telemetry.Info("api.shutdown", map[string]any{"timeout": shutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Warn("api.shutdown_failed", map[string]any{"error": err.Error()})
	}

	// in-process runs finish before the database closes
	done := make(chan struct{})
	go func() {
		app.CoachingService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		telemetry.Warn("api.shutdown_runs_abandoned", nil)
	}
}
