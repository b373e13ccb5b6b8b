package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
)

// CSRF returns middleware protecting form posts with a token derived from
// key. secure marks the CSRF cookie as HTTPS-only; without it, requests
// that did not arrive over TLS have their Origin checked against http://.
func CSRF(key []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid or missing CSRF token", http.StatusForbidden)
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure && r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			h.ServeHTTP(w, r)
		})
	}
}

// NewRouter mounts the page routes. events, if non-nil, is served at
// GET /events. Each non-nil entry of protect wraps every route, in order
// (token auth, CSRF).
func NewRouter(h *Handler, events http.Handler, protect ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	for _, mw := range protect {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/", h.Page)
	r.Get("/fragments/{name}", h.Fragment)

	r.Post("/patients", h.AddPatient)
	r.Post("/appointments", h.AddAppointment)
	r.Post("/exercises", h.AddPlan)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
