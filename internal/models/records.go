// Package models defines the clinic record types.
//
// Records carry no identifiers and never reference each other: the patient
// field of an appointment or plan is free text, not a link to a Patient.
package models

// Patient is a registered patient.
type Patient struct {
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

// Appointment is a scheduled session. Date holds the submitted date-time
// text verbatim; it is only parsed when rendered.
type Appointment struct {
	Patient string `json:"patient"`
	Date    string `json:"date"`
	Notes   string `json:"notes"`
}

// Plan is an exercise plan assigned to a patient.
type Plan struct {
	Patient string `json:"patient"`
	Plan    string `json:"plan"`
}

// Collection keys in the persistent store.
const (
	KeyPatients      = "patients"
	KeyAppointments  = "appointments"
	KeyExercisePlans = "exercisePlans"
)

// Keys lists every collection key in a fixed order.
var Keys = []string{KeyPatients, KeyAppointments, KeyExercisePlans}
