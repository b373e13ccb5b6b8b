// Package render projects the clinic collections into tables, lists,
// counts and HTML. Every function rebuilds its output from the collection
// it is given, so rendering the same collection twice gives the same result.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/models"
)

// Table is a header row plus one row of cells per record.
type Table struct {
	Headers []string
	Rows    [][]string
}

// cellSep joins cells in the plain-text form.
const cellSep = " | "

// RowText returns row i as plain text.
func (t Table) RowText(i int) string {
	return strings.Join(t.Rows[i], cellSep)
}

// Text returns the header and every row, one per line.
func (t Table) Text() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Headers, cellSep))
	b.WriteByte('\n')
	for i := range t.Rows {
		b.WriteString(t.RowText(i))
		b.WriteByte('\n')
	}
	return b.String()
}

// PatientTable renders one row per patient: name, age, condition, notes.
func PatientTable(patients []models.Patient) Table {
	t := Table{Headers: []string{"Name", "Age", "Condition", "Notes"}, Rows: make([][]string, 0, len(patients))}
	for _, p := range patients {
		t.Rows = append(t.Rows, []string{p.Name, strconv.Itoa(p.Age), p.Condition, p.Notes})
	}
	return t
}

// AppointmentTable renders one row per appointment with the date formatted
// for display.
func AppointmentTable(appointments []models.Appointment, dates DateFormatter) Table {
	t := Table{Headers: []string{"Patient", "Date", "Notes"}, Rows: make([][]string, 0, len(appointments))}
	for _, a := range appointments {
		t.Rows = append(t.Rows, []string{a.Patient, dates.Format(a.Date), a.Notes})
	}
	return t
}

// PlanList renders one "patient: plan" item per exercise plan.
func PlanList(plans []models.Plan) []string {
	items := make([]string, 0, len(plans))
	for _, p := range plans {
		items = append(items, p.Patient+": "+p.Plan)
	}
	return items
}

// CountLines renders the three collection counts.
func CountLines(c clinic.Counts) []string {
	return []string{
		fmt.Sprintf("Patients: %d", c.Patients),
		fmt.Sprintf("Appointments: %d", c.Appointments),
		fmt.Sprintf("Exercise Plans: %d", c.ExercisePlans),
	}
}
