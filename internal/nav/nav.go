// Package nav decides which top-level page section is shown.
package nav

import (
	"fmt"

	"github.com/starford/physiodesk/internal/apperr"
)

// Section IDs.
const (
	Home         = "home"
	Patients     = "patients"
	Appointments = "appointments"
	Exercises    = "exercises"
	Reports      = "reports"
	Settings     = "settings"
)

// Section is one top-level page section.
type Section struct {
	ID     string
	Title  string
	Active bool
}

// View is the navigation state of a page: every section, exactly one active.
type View struct {
	Sections []Section
}

var sections = []Section{
	{ID: Home, Title: "Home"},
	{ID: Patients, Title: "Patients"},
	{ID: Appointments, Title: "Appointments"},
	{ID: Exercises, Title: "Exercise Plans"},
	{ID: Reports, Title: "Reports"},
	{ID: Settings, Title: "Settings"},
}

// Default is the section shown when none is requested.
func Default() View {
	v, _ := Show(Home)
	return v
}

// Show returns a view with id active and every other section inactive.
func Show(id string) (View, error) {
	v := View{Sections: make([]Section, len(sections))}
	found := false
	for i, s := range sections {
		s.Active = s.ID == id
		found = found || s.Active
		v.Sections[i] = s
	}
	if !found {
		return View{}, fmt.Errorf("%w: %q", apperr.ErrUnknownSection, id)
	}
	return v, nil
}

// Active returns the ID of the active section.
func (v View) Active() string {
	for _, s := range v.Sections {
		if s.Active {
			return s.ID
		}
	}
	return ""
}

// IsActive reports whether id is the active section.
func (v View) IsActive(id string) bool {
	return v.Active() == id
}
