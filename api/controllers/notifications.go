package controllers

import (
	"net/http"

	"github.com/amaiabotanic/storefront/api/middleware"
	"github.com/amaiabotanic/storefront/api/responses"
	"github.com/amaiabotanic/storefront/internal/notifications"
	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

type noticeDrainer interface {
	Drain(sessionID string) []notifications.Notice
}

// NotificationsDrain returns and clears the session's pending notices.
func NotificationsDrain(feeds noticeDrainer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing cart session"))
			return
		}
		responses.WriteSuccess(w, map[string][]notifications.Notice{
			"notifications": feeds.Drain(sessionID),
		})
	}
}
