package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the storefront's allowed-origin policy.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader, IdempotencyHeader, "X-Requested-With"},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After", "Idempotent-Replay", "X-Catalog-Stale"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
