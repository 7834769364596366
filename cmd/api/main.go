package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-ledger/config"
	"github.com/marcelsud/webhook-ledger/internal/auth"
	"github.com/marcelsud/webhook-ledger/internal/http/chi"
	"github.com/marcelsud/webhook-ledger/internal/store"
	"github.com/marcelsud/webhook-ledger/metrics"
	"github.com/marcelsud/webhook-ledger/number"
	"github.com/marcelsud/webhook-ledger/webhook"
	promclient "github.com/prometheus/client_golang/prometheus"
)

const TIMEOUT = 30 * time.Second

/* main.go is where every package is wired together.
 * Imports only go downwards: the application imports the business
 * packages, which import the storage layer.
 */

func main() {
	logger := httplog.NewLogger("webhook-ledger", httplog.Options{
		JSON: true,
	})

	cfg, err := config.GetConfig()
	if err != nil {
		logger.Error().Err(err).Msg("loading config")
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("validating config")
		return
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	stores, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.GetStoreDriver()).Msg("opening store")
		return
	}
	defer stores.Close(context.Background())

	webhookService := webhook.NewService(stores.Webhooks)
	numberService := number.NewService(stores.Numbers)
	tokens := auth.NewTokenGenerator(cfg.JWTSecret, cfg.GetJWTTTL())

	exporter, err := metrics.NewOTelExporter(metrics.NewStoreCollector(stores.Webhooks), promclient.NewRegistry())
	if err != nil {
		logger.Error().Err(err).Msg("creating metrics exporter")
		return
	}
	defer exporter.Shutdown(context.Background())

	r := chi.Handlers(ctx, webhookService, numberService, tokens, exporter.ServeHTTP(), cfg.GetRequestTimeout())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.GetPort(),
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info().Str("port", cfg.GetPort()).Str("driver", cfg.GetStoreDriver()).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("serving http")
		return
	}
	if err := <-errShutdown; err != nil {
		logger.Error().Err(err).Msg("shutting down")
		return
	}
	logger.Info().Msg("server stopped")
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	if err := server.Shutdown(ctxTimeout); err != nil {
		errShutdown <- fmt.Errorf("forcing closing the server: %w", err)
		return
	}
	errShutdown <- nil
}
