package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-ledger/webhook"
)

/* HTTP layer DTOs for the webhook API
 * Separate from domain entities to avoid leaking internal structure
 */

const sourceHeader = "X-Webhook-Source"

// ingestResponse is returned to external senders on success
type ingestResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	WebhookID string `json:"webhookId"`
}

// webhookResponse is the wire form of a record; timestamps are epoch milliseconds
type webhookResponse struct {
	ID           string         `json:"id"`
	Payload      string         `json:"payload"`
	Source       string         `json:"source"`
	Status       webhook.Status `json:"status"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	UserID       string         `json:"userId,omitempty"`
	ReceivedAt   int64          `json:"receivedAt"`
	ProcessedAt  *int64         `json:"processedAt,omitempty"`
}

type createWebhookRequest struct {
	Payload string `json:"payload"`
	Source  string `json:"source"`
	UserID  string `json:"userId"`
}

type createWebhookResponse struct {
	ID string `json:"id"`
}

type updateStatusRequest struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

func toWebhookResponse(wh webhook.Webhook) webhookResponse {
	resp := webhookResponse{
		ID:           wh.ID,
		Payload:      wh.Payload,
		Source:       wh.Source,
		Status:       wh.Status,
		ErrorMessage: wh.ErrorMessage,
		UserID:       wh.UserID,
		ReceivedAt:   wh.ReceivedAt.UnixMilli(),
	}
	if wh.ProcessedAt != nil {
		ms := wh.ProcessedAt.UnixMilli()
		resp.ProcessedAt = &ms
	}
	return resp
}

func toWebhookResponses(whs []webhook.Webhook) []webhookResponse {
	result := make([]webhookResponse, 0, len(whs))
	for _, wh := range whs {
		result = append(result, toWebhookResponse(wh))
	}
	return result
}

// ingestWebhook handles /webhook. Only POST is accepted; the body must be JSON.
func ingestWebhook(webhookService webhook.Ingester) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST.")
			return
		}

		body, err := io.ReadAll(r.Body)
		defer r.Body.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}

		id, err := webhookService.Ingest(r.Context(), body, r.Header.Get(sourceHeader))
		if errors.Is(err, webhook.ErrInvalidPayload) {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err != nil {
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Msg("processing webhook")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, ingestResponse{
			Success:   true,
			Message:   "Webhook received successfully",
			WebhookID: id,
		})
	})
}

// listWebhooks handles GET /v1/webhooks?source=&status=&limit=
func listWebhooks(webhookService webhook.Querier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts := webhook.ListOptions{
			Source: r.URL.Query().Get("source"),
		}
		if s := r.URL.Query().Get("status"); s != "" {
			status, err := webhook.ParseStatus(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status: %q", s))
				return
			}
			opts.Status = status
		}
		n, err := parseLimit(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Limit = n

		all, err := webhookService.List(r.Context(), opts)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toWebhookResponses(all))
	})
}

// getWebhook handles GET /v1/webhooks/{id}; the body is null when absent
func getWebhook(webhookService webhook.Querier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wh, err := webhookService.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if wh == nil {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, toWebhookResponse(*wh))
	})
}

// listMyWebhooks handles GET /v1/me/webhooks?limit=
func listMyWebhooks(webhookService webhook.Querier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := parseLimit(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		all, err := webhookService.ListByUser(r.Context(), n)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toWebhookResponses(all))
	})
}

// getStats handles GET /v1/webhooks/stats; the body is null for anonymous callers
func getStats(webhookService webhook.Querier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := webhookService.Stats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})
}

// createWebhook handles POST /v1/webhooks
func createWebhook(webhookService webhook.Lifecycle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id, err := webhookService.Create(r.Context(), req.Payload, req.Source, req.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, createWebhookResponse{ID: id})
	})
}

// updateWebhookStatus handles PATCH /v1/webhooks/{id}/status
func updateWebhookStatus(webhookService webhook.Lifecycle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		// Unknown names become the zero Status, which the service rejects after the identity check
		err := webhookService.UpdateStatus(r.Context(), chi.URLParam(r, "id"), webhook.NewStatus(req.Status), req.ErrorMessage)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	})
}

// removeWebhook handles DELETE /v1/webhooks/{id}
func removeWebhook(webhookService webhook.Lifecycle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := webhookService.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	})
}

func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: %q", s)
	}
	return n, nil
}
