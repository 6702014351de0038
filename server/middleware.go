package server

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	valid "github.com/raywall/json-schema-gate"
	"github.com/raywall/json-schema-gate/config"
)

func passthrough(next http.Handler) http.Handler { return next }

// corsMiddleware allows the configured origins to call the API from a
// browser. Without origins it does nothing.
func corsMiddleware(cfg config.ServerConfig) func(http.Handler) http.Handler {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return passthrough
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	})
}

// rateLimit limits validation requests per client IP.
func rateLimit(cfg config.ServerConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitRequests <= 0 {
		return passthrough
	}
	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, valid.ErrorResponse{Error: "rate limit exceeded"})
		}),
	)
}
