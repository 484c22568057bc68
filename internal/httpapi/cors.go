package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
)

// CORS allows cross-origin requests from the listed origins. Without
// any origin the handler is returned unchanged and browsers keep
// foreign pages from reading responses.
func CORS(h http.Handler, origins []string) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 {
		return h
	}

	return handlers.CORS(
		handlers.AllowedOrigins(allowed),
		handlers.AllowedHeaders([]string{
			"X-Requested-With",
			"Content-Type",
			"Authorization",
		}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"}),
	)(h)
}
