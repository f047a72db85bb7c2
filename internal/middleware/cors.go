package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"garage-backend/internal/config"
)

// NewCORS allows the dashboard origins. The Authorization header must be
// listed for bearer tokens to pass preflight.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	headers := cfg.Server.CorsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   headers,
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})

	return c.Handler
}
