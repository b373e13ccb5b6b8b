package render

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/nav"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrUnknownFragment is returned for a fragment name that does not exist.
var ErrUnknownFragment = errors.New("render: unknown fragment")

// fragments maps public fragment names to template names.
var fragments = map[string]string{
	"patients":     "patients_table",
	"appointments": "appointments_table",
	"exercises":    "exercise_list",
	"counts":       "counts",
}

// Setting is one read-only row in the settings section.
type Setting struct {
	Name  string
	Value string
}

// Forms holds the values to pre-fill the forms with. They are empty after
// a successful submission and keep the rejected input after a failed one.
type Forms struct {
	Patient     clinic.PatientForm
	Appointment clinic.AppointmentForm
	Plan        clinic.PlanForm
}

// PageData is everything the page and fragment templates need.
type PageData struct {
	Nav          nav.View
	Patients     Table
	Appointments Table
	Plans        []string
	Counts       []string
	Report       template.HTML
	Settings     []Setting
	Notice       string
	Forms        Forms
	CSRFField    template.HTML
}

// Renderer renders the HTML page and its fragments.
type Renderer struct {
	tpl   *template.Template
	dates DateFormatter
}

// New parses the embedded templates.
func New(dates DateFormatter) (*Renderer, error) {
	tpl, err := template.New("root").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{tpl: tpl, dates: dates}, nil
}

// Data builds page data from a snapshot with the given section active.
func (r *Renderer) Data(s clinic.Snapshot, view nav.View) (PageData, error) {
	report, err := ReportHTML(s)
	if err != nil {
		return PageData{}, err
	}
	return PageData{
		Nav:          view,
		Patients:     PatientTable(s.Patients),
		Appointments: AppointmentTable(s.Appointments, r.dates),
		Plans:        PlanList(s.Plans),
		Counts:       CountLines(s.Counts()),
		Report:       report,
	}, nil
}

// Page writes the full HTML page.
func (r *Renderer) Page(w io.Writer, d PageData) error {
	if err := r.tpl.ExecuteTemplate(w, "page", d); err != nil {
		return fmt.Errorf("render: page: %w", err)
	}
	return nil
}

// Fragment writes the named fragment: patients, appointments, exercises or counts.
func (r *Renderer) Fragment(w io.Writer, name string, d PageData) error {
	tplName, ok := fragments[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFragment, name)
	}
	if err := r.tpl.ExecuteTemplate(w, tplName, d); err != nil {
		return fmt.Errorf("render: fragment %s: %w", name, err)
	}
	return nil
}
