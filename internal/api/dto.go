package api

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/models"
)

// CreatePatientRequest is the request body for adding a patient. Age may
// be a JSON number or a string; either way it must be an integer.
type CreatePatientRequest struct {
	Name      string   `json:"name"`
	Age       ageValue `json:"age"`
	Condition string   `json:"condition"`
	Notes     string   `json:"notes"`
}

// Form converts the request into form input for the patient factory.
func (r CreatePatientRequest) Form() clinic.PatientForm {
	return clinic.PatientForm{
		Name:      r.Name,
		Age:       string(r.Age),
		Condition: r.Condition,
		Notes:     r.Notes,
	}
}

// ageValue keeps the text of a JSON string or number so the factory
// reports a non-integer age as a field error.
type ageValue string

func (a *ageValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ageValue(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.New("age must be a string or a number")
		}
		*a = ageValue(n.String())
		return nil
	}
}

// CreateAppointmentRequest is the request body for adding an appointment.
type CreateAppointmentRequest = clinic.AppointmentForm

// CreatePlanRequest is the request body for adding an exercise plan.
type CreatePlanRequest = clinic.PlanForm

// PatientListResponse wraps the patient collection.
type PatientListResponse struct {
	Patients []models.Patient `json:"patients"`
	Total    int              `json:"total"`
}

// AppointmentItem is an appointment with its display date.
type AppointmentItem struct {
	models.Appointment
	DisplayDate string `json:"display_date"`
}

// AppointmentListResponse wraps the appointment collection.
type AppointmentListResponse struct {
	Appointments []AppointmentItem `json:"appointments"`
	Total        int               `json:"total"`
}

// PlanListResponse wraps the exercise plan collection.
type PlanListResponse struct {
	ExercisePlans []models.Plan `json:"exercise_plans"`
	Total         int           `json:"total"`
}

// CountsResponse carries the collection lengths and their display lines.
type CountsResponse struct {
	clinic.Counts
	Lines []string `json:"lines"`
}
