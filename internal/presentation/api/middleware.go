package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hilthontt/liveshare/internal/infrastructure/json"
)

func (app *Application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow, retryAfter := app.ratelimiter.Allow(r.RemoteAddr); !allow {
			json.WriteRateLimitError(w, int(retryAfter.Seconds()))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireEditorRequest applies the basic abuse filters in front of room
// creation: a JSON body and the custom header the editor client sets.
// Browsers can't forge the header cross-site without a CORS preflight.
func (app *Application) requireEditorRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			json.WriteError(w, http.StatusUnsupportedMediaType, errors.New("invalid content-type"), "Expected application/json")
			return
		}
		if r.Header.Get("X-Requested-With") != "editor" {
			json.WriteError(w, http.StatusForbidden, errors.New("forbidden"), "Missing editor header")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) enableCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if app.originAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "null")
			}
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")

		// allow preflight requests from the browser client
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originAllowed treats an empty allow-list as "allow everything", matching
// the local-development default.
func (app *Application) originAllowed(origin string) bool {
	allowed := app.config.HTTP.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}
