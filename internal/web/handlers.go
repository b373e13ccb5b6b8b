// Package web serves the clinic page: the HTML document, its form
// submissions and the fragments the page refreshes on live updates.
package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"

	"github.com/starford/physiodesk/internal/apperr"
	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/nav"
	"github.com/starford/physiodesk/internal/render"
)

// Handler holds the page route handlers.
type Handler struct {
	svc      *clinic.Service
	renderer *render.Renderer
	settings []render.Setting
}

// NewHandler creates a new Handler. settings are shown read-only in the
// settings section.
func NewHandler(svc *clinic.Service, renderer *render.Renderer, settings []render.Setting) *Handler {
	return &Handler{svc: svc, renderer: renderer, settings: settings}
}

// pageData builds the data for the current collections with view active.
func (h *Handler) pageData(r *http.Request, view nav.View) (render.PageData, error) {
	d, err := h.renderer.Data(h.svc.Snapshot(r.Context()), view)
	if err != nil {
		return render.PageData{}, err
	}
	d.Settings = h.settings
	d.CSRFField = csrf.TemplateField(r)
	return d, nil
}

// writePage renders into a buffer first so a template failure never
// leaves a half-written page behind.
func (h *Handler) writePage(w http.ResponseWriter, status int, d render.PageData) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, d); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Page handles GET /. The section query parameter selects the visible
// section; home is shown by default.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	view := nav.Default()
	if id := r.URL.Query().Get("section"); id != "" {
		v, err := nav.Show(id)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		view = v
	}
	d, err := h.pageData(r, view)
	if err != nil {
		internalError(w, err)
		return
	}
	h.writePage(w, http.StatusOK, d)
}

// Fragment handles GET /fragments/{name}.
func (h *Handler) Fragment(w http.ResponseWriter, r *http.Request) {
	d, err := h.pageData(r, nav.Default())
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.Fragment(&buf, chi.URLParam(r, "name"), d); err != nil {
		if errors.Is(err, render.ErrUnknownFragment) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// AddPatient handles POST /patients.
func (h *Handler) AddPatient(w http.ResponseWriter, r *http.Request) {
	f := clinic.PatientForm{
		Name:      r.PostFormValue("name"),
		Age:       r.PostFormValue("age"),
		Condition: r.PostFormValue("condition"),
		Notes:     r.PostFormValue("notes"),
	}
	_, err := h.svc.AddPatient(r.Context(), f)
	h.afterSubmit(w, r, nav.Patients, err, render.Forms{Patient: f})
}

// AddAppointment handles POST /appointments.
func (h *Handler) AddAppointment(w http.ResponseWriter, r *http.Request) {
	f := clinic.AppointmentForm{
		Patient: r.PostFormValue("patient"),
		Date:    r.PostFormValue("date"),
		Notes:   r.PostFormValue("notes"),
	}
	_, err := h.svc.AddAppointment(r.Context(), f)
	h.afterSubmit(w, r, nav.Appointments, err, render.Forms{Appointment: f})
}

// AddPlan handles POST /exercises.
func (h *Handler) AddPlan(w http.ResponseWriter, r *http.Request) {
	f := clinic.PlanForm{
		Patient: r.PostFormValue("patient"),
		Plan:    r.PostFormValue("plan"),
	}
	_, err := h.svc.AddPlan(r.Context(), f)
	h.afterSubmit(w, r, nav.Exercises, err, render.Forms{Plan: f})
}

// afterSubmit redirects to a fresh form on success. A rejected submission
// re-renders the section with the notification and the submitted values.
func (h *Handler) afterSubmit(w http.ResponseWriter, r *http.Request, section string, err error, forms render.Forms) {
	if err == nil {
		http.Redirect(w, r, "/?section="+section, http.StatusSeeOther)
		return
	}
	if !errors.Is(err, apperr.ErrValidation) {
		internalError(w, err)
		return
	}
	view, _ := nav.Show(section)
	d, dataErr := h.pageData(r, view)
	if dataErr != nil {
		internalError(w, dataErr)
		return
	}
	d.Notice = err.Error()
	d.Forms = forms
	h.writePage(w, http.StatusUnprocessableEntity, d)
}

// internalError logs the real error and returns a generic message.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("web: internal error", slog.String("error", err.Error()))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
