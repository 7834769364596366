package chi

import (
	"net/http"
	"strings"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-ledger/internal/auth"
	"github.com/marcelsud/webhook-ledger/internal/user"
)

// TokenValidator resolves a bearer token into its claims
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// identify attaches the caller identity to the request context when a valid
// bearer token is present. Requests without one continue anonymously and the
// services decide what an anonymous caller may do.
func identify(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger := httplog.LogEntry(r.Context())
				logger.Warn().Err(err).Msg("ignoring bearer token")
				next.ServeHTTP(w, r)
				return
			}

			httplog.LogEntrySetField(r.Context(), "user_id", claims.UserID)
			ctx := user.NewContext(r.Context(), user.User{ID: claims.UserID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
