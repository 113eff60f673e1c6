package middleware

import (
	"net/http"

	"github.com/amaiabotanic/storefront/api/responses"
	"github.com/amaiabotanic/storefront/api/validators"
	pkgauth "github.com/amaiabotanic/storefront/pkg/auth"
	"github.com/amaiabotanic/storefront/pkg/config"
	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

// SessionHeader carries the cart session token when no Authorization header
// is sent.
const SessionHeader = "X-Cart-Session"

// CartSession validates the cart session token and seeds the request context
// with its session id.
func CartSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" {
				raw = r.Header.Get(SessionHeader)
			}
			token, err := validators.BearerToken(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing cart session"))
				return
			}

			claims, err := pkgauth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid cart session"))
				return
			}

			ctx := WithSessionID(r.Context(), claims.SessionID)
			ctx = logg.WithSessionID(ctx, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
