package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/webhook-ledger/number"
)

/*
* The number as seen by the web layer, hence the json tags
 */
type numberRequest struct {
	Value *float64 `json:"value"`
}

type numberResponse struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	UserID    string  `json:"userId"`
	CreatedAt int64   `json:"createdAt"`
}

func decodeNumber(r *http.Request) (float64, bool) {
	var nr numberRequest
	if err := json.NewDecoder(r.Body).Decode(&nr); err != nil || nr.Value == nil {
		return 0, false
	}
	return *nr.Value, true
}

func getNumbers(numberService number.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all, err := numberService.List(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		result := make([]numberResponse, 0, len(all))
		for _, n := range all {
			result = append(result, numberResponse{
				ID:        n.ID,
				Value:     n.Value,
				UserID:    n.UserID,
				CreatedAt: n.CreatedAt.UnixMilli(),
			})
		}
		writeJSON(w, http.StatusOK, result)
	})
}

func postNumber(numberService number.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, ok := decodeNumber(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id, err := numberService.Create(r.Context(), value)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	})
}

func putNumber(numberService number.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, ok := decodeNumber(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := numberService.Update(r.Context(), chi.URLParam(r, "id"), value); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	})
}

func deleteNumber(numberService number.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := numberService.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	})
}
