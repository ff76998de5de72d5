package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser wallets on the configured origins to call the API and
// read the session and request id headers.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader},
		ExposedHeaders:   []string{SessionTokenHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
