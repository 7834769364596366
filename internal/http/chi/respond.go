package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-ledger/number"
	"github.com/marcelsud/webhook-ledger/webhook"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain errors to status codes. Unexpected causes are
// logged on the request entry and answered with an opaque message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, webhook.ErrNotAuthenticated), errors.Is(err, number.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, number.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, webhook.ErrNotFound):
		writeError(w, http.StatusNotFound, "Webhook not found")
	case errors.Is(err, number.ErrNotFound):
		writeError(w, http.StatusNotFound, "Number not found")
	case errors.Is(err, webhook.ErrInvalidStatus), errors.Is(err, webhook.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger := httplog.LogEntry(r.Context())
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
