package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that applies the configured allowed origins.
// A wildcard origin disables credentialed requests.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, requestIDHeader, "X-Requested-With"},
		ExposedHeaders:   []string{requestIDHeader, "Idempotent-Replayed"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}).Handler
}
