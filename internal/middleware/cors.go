package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS answers preflight requests and reflects allowed origins with
// credentials enabled. An empty list or a "*" entry allows every origin;
// the origin is still reflected so credentialed requests work.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.ToLower(strings.TrimSpace(o))
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return allowAll || allowed[strings.ToLower(origin)]
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
