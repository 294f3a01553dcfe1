package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chat-assistant/internal/app"
	"chat-assistant/internal/common/config"
	"chat-assistant/internal/common/observability"
	"chat-assistant/internal/transport/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		// No config means no logger settings yet; fall back to a production logger.
		zap.Must(zap.NewProduction()).Fatal("Failed to load config", zap.Error(err))
	}

	zapLog := newRootLogger(cfg)
	defer zapLog.Sync()

	zapLog.Info("Starting assistant",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zapLog, obs)
	if err != nil {
		zapLog.Fatal("Failed to initialise dependencies", zap.Error(err))
	}
	defer a.Close()

	handler := webhook.NewHandler(a.Dispatcher, cfg.Bot.Token, a.ReadinessChecks(), a.Log)
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           webhook.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLog.Info("Webhook server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			zapLog.Error("Webhook server failed", zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("Graceful shutdown did not complete", zap.Error(err))
		return err
	}

	zapLog.Info("Assistant stopped")
	return nil
}
