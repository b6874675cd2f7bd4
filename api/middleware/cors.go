package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

// CORS admits the admin app and public menu origins from CARTA_CORS_ORIGINS.
// A "*" entry opens the API to any origin but drops credentialed requests,
// since browsers refuse a wildcard together with cookies.
func CORS(origins []string) func(http.Handler) http.Handler {
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	wildcard := slices.Contains(cleaned, "*")
	if wildcard {
		cleaned = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: cleaned,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", TokenHeader, idempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{
			TokenHeader, requestIDHeader, replayedHeader,
			"Content-Disposition", "Retry-After",
		},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	})
}
