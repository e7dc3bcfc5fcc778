package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/billflow/billflow/internal/platform/httpx"
	"github.com/billflow/billflow/internal/shared"
)

// Authenticator verifies bearer tokens on protected routes.
type Authenticator struct {
	Tokens *TokenManager
	Logger *slog.Logger
	Events Events
}

// Middleware rejects requests without a valid bearer token and stores the
// verified user id in the request context.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			a.rejected(RejectMissingToken)
			httpx.RespondError(w, ErrMissingAuthToken)
			return
		}
		userID, err := a.Tokens.Verify(raw)
		if err != nil {
			if a.Logger != nil {
				a.Logger.Debug("bearer token rejected", slog.String("path", r.URL.Path))
			}
			a.rejected(RejectInvalidToken)
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithUserID(r.Context(), userID)))
	})
}

func (a Authenticator) rejected(reason string) {
	if a.Events != nil {
		a.Events.RequestRejected(reason)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
