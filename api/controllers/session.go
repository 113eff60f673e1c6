package controllers

import (
	"net/http"
	"time"

	"github.com/amaiabotanic/storefront/api/middleware"
	"github.com/amaiabotanic/storefront/api/responses"
	pkgauth "github.com/amaiabotanic/storefront/pkg/auth"
	"github.com/amaiabotanic/storefront/pkg/config"
	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

type sessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionCreate starts an anonymous cart session and returns its token.
func SessionCreate(cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := pkgauth.NewSessionID()
		token, expiresAt, err := pkgauth.MintSessionToken(cfg, time.Now(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token"))
			return
		}

		logg.Info(logg.WithSessionID(r.Context(), sessionID), "cart session started")
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			Token:     token,
			SessionID: sessionID,
			ExpiresAt: expiresAt,
		})
	}
}

type sessionEnder interface {
	End(sessionID string) error
}

// SessionEnd releases the session's in-memory cart, checkout and notices.
// The persisted cart is kept until its storage TTL or retention runs out.
func SessionEnd(sessions sessionEnder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing cart session"))
			return
		}
		if err := sessions.End(sessionID); err != nil {
			logg.Warn(logg.WithSessionID(logg.WithField(r.Context(), "error", err.Error()), sessionID), "cart session teardown incomplete")
		}
		logg.Info(logg.WithSessionID(r.Context(), sessionID), "cart session ended")
		w.WriteHeader(http.StatusNoContent)
	}
}
