// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpin "github.com/lwb4/proofofclick/internal/adapters/in/http"
	appcfg "github.com/lwb4/proofofclick/internal/infra/config"
	"github.com/lwb4/proofofclick/internal/infra/logging"
	"github.com/lwb4/proofofclick/internal/platform/di"
)

func main() {
	ctx := context.Background()

	cfg := appcfg.Load()
	logger := logging.Init("proofofclick-api", cfg.LogLevel, cfg.LogFormat)

	// ─────────────────────────────────────────────────────────────
	// DI container（設定・台帳・ユースケース）
	// ─────────────────────────────────────────────────────────────
	cont, err := di.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("di init failed")
	}
	defer func() {
		if err := cont.Close(); err != nil {
			logger.Warn().Err(err).Msg("container close")
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpin.NewRouter(cont.RouterDeps()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─────────────────────────────────────────────────────────────
	// Graceful shutdown
	// ─────────────────────────────────────────────────────────────
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c
		logger.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
		close(idleConnsClosed)
	}()

	logger.Info().Str("addr", srv.Addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}

	<-idleConnsClosed
	logger.Info().Msg("server stopped")
}
