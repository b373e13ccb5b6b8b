// Package api implements the clinic JSON API using chi.
package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// AuthMiddleware returns middleware that checks the API token.
// If enabled is false, all requests pass through (disabled mode).
// Otherwise requests carry "Authorization: Bearer <token>". GET requests
// may pass it as the access_token query parameter instead, since an
// EventSource cannot set headers.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				slog.Debug("api: rejected request",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				w.Header().Set("WWW-Authenticate", `Bearer realm="physiodesk"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return auth, true
	}
	if r.Method == http.MethodGet {
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t, true
		}
	}
	return "", false
}
