package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/render"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *clinic.Service, dates render.DateFormatter, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, dates)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/patients", h.ListPatients)
	r.Post("/patients", h.CreatePatient)

	r.Get("/appointments", h.ListAppointments)
	r.Post("/appointments", h.CreateAppointment)

	r.Get("/exercise-plans", h.ListPlans)
	r.Post("/exercise-plans", h.CreatePlan)

	r.Get("/counts", h.Counts)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
