package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-ledger/number"
	"github.com/marcelsud/webhook-ledger/webhook"
)

// Handlers sets up the public ingestion endpoint, the /v1 procedure surface and
// the operational routes. metricsHandler may be nil.
func Handlers(ctx context.Context, webhookService webhook.UseCase, numberService number.UseCase, validator TokenValidator, metricsHandler http.Handler, timeout time.Duration) *chi.Mux {
	logger := httplog.NewLogger("webhook-ledger", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Every method reaches the ingestion handler, which answers 405 itself
	r.Handle("/webhook", ingestWebhook(webhookService))

	r.Route("/v1", func(r chi.Router) {
		r.Use(identify(validator))

		r.Method(http.MethodGet, "/webhooks", listWebhooks(webhookService))
		r.Method(http.MethodPost, "/webhooks", createWebhook(webhookService))
		r.Method(http.MethodGet, "/webhooks/stats", getStats(webhookService))
		r.Method(http.MethodGet, "/webhooks/{id}", getWebhook(webhookService))
		r.Method(http.MethodPatch, "/webhooks/{id}/status", updateWebhookStatus(webhookService))
		r.Method(http.MethodDelete, "/webhooks/{id}", removeWebhook(webhookService))
		r.Method(http.MethodGet, "/me/webhooks", listMyWebhooks(webhookService))

		r.Method(http.MethodGet, "/numbers", getNumbers(numberService))
		r.Method(http.MethodPost, "/numbers", postNumber(numberService))
		r.Method(http.MethodPut, "/numbers/{id}", putNumber(numberService))
		r.Method(http.MethodDelete, "/numbers/{id}", deleteNumber(numberService))
	})

	return r
}
