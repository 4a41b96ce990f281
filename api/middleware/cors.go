package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that lets browsers call the API from the configured
// origins. methods defaults to GET; OPTIONS is always allowed.
func CORS(origins []string, methods ...string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: append(methods, http.MethodOptions),
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Cache"},
		MaxAge:         300,
	}).Handler
}
