package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	svc   *clinic.Service
	dates render.DateFormatter
}

// NewHandler creates a new Handler.
func NewHandler(svc *clinic.Service, dates render.DateFormatter) *Handler {
	return &Handler{svc: svc, dates: dates}
}

// ListPatients handles GET /api/patients.
//
//	@Summary		List patients in insertion order
//	@Tags			patients
//	@Produce		json
//	@Success		200	{object}	PatientListResponse
//	@Security		BearerAuth
//	@Router			/patients [get]
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	ps := h.svc.Patients(r.Context())
	writeJSON(w, http.StatusOK, PatientListResponse{Patients: ps, Total: len(ps)})
}

// CreatePatient handles POST /api/patients.
//
//	@Summary		Add a patient
//	@Tags			patients
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePatientRequest	true	"Patient fields; age is an integer given as a number or a string"
//	@Success		201		{object}	models.Patient
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/patients [post]
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, err := h.svc.AddPatient(r.Context(), req.Form())
	if err != nil {
		writeAddError(w, "patient", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListAppointments handles GET /api/appointments.
//
//	@Summary		List appointments with display dates
//	@Tags			appointments
//	@Produce		json
//	@Success		200	{object}	AppointmentListResponse
//	@Security		BearerAuth
//	@Router			/appointments [get]
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	as := h.svc.Appointments(r.Context())
	items := make([]AppointmentItem, len(as))
	for i, a := range as {
		items[i] = AppointmentItem{Appointment: a, DisplayDate: h.dates.Format(a.Date)}
	}
	writeJSON(w, http.StatusOK, AppointmentListResponse{Appointments: items, Total: len(items)})
}

// CreateAppointment handles POST /api/appointments.
//
//	@Summary		Add an appointment
//	@Tags			appointments
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateAppointmentRequest	true	"Appointment form fields"
//	@Success		201		{object}	AppointmentItem
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/appointments [post]
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	a, err := h.svc.AddAppointment(r.Context(), req)
	if err != nil {
		writeAddError(w, "appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, AppointmentItem{Appointment: a, DisplayDate: h.dates.Format(a.Date)})
}

// ListPlans handles GET /api/exercise-plans.
//
//	@Summary		List exercise plans
//	@Tags			exercise-plans
//	@Produce		json
//	@Success		200	{object}	PlanListResponse
//	@Security		BearerAuth
//	@Router			/exercise-plans [get]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	ps := h.svc.Plans(r.Context())
	writeJSON(w, http.StatusOK, PlanListResponse{ExercisePlans: ps, Total: len(ps)})
}

// CreatePlan handles POST /api/exercise-plans.
//
//	@Summary		Add an exercise plan
//	@Tags			exercise-plans
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePlanRequest	true	"Plan form fields"
//	@Success		201		{object}	models.Plan
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exercise-plans [post]
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, err := h.svc.AddPlan(r.Context(), req)
	if err != nil {
		writeAddError(w, "exercise plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Counts handles GET /api/counts.
//
//	@Summary		Collection counts
//	@Tags			counts
//	@Produce		json
//	@Success		200	{object}	CountsResponse
//	@Security		BearerAuth
//	@Router			/counts [get]
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	c := h.svc.Counts(r.Context())
	writeJSON(w, http.StatusOK, CountsResponse{Counts: c, Lines: render.CountLines(c)})
}

func writeAddError(w http.ResponseWriter, kind string, err error) {
	var verr *clinic.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}
	slog.Error("add "+kind+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
