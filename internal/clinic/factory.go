package clinic

import (
	"errors"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/physiodesk/internal/apperr"
	"github.com/starford/physiodesk/internal/models"
)

// RequiredFieldsMessage is the notification shown when a submission is rejected.
const RequiredFieldsMessage = "Please fill in all required fields."

// ValidationError reports a rejected submission. Fields maps a form field
// name to what was wrong with it.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return RequiredFieldsMessage
}

func (e *ValidationError) Unwrap() error {
	return apperr.ErrValidation
}

// PatientForm holds the raw patient form input.
type PatientForm struct {
	Name      string `json:"name"`
	Age       string `json:"age"`
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

// AppointmentForm holds the raw appointment form input.
type AppointmentForm struct {
	Patient string `json:"patient"`
	Date    string `json:"date"`
	Notes   string `json:"notes"`
}

// PlanForm holds the raw exercise plan form input.
type PlanForm struct {
	Patient string `json:"patient"`
	Plan    string `json:"plan"`
}

var errNotInteger = validation.NewError("validation_is_integer", "must be an integer")

// integer accepts any base-10 integer. Empty values are left to Required.
var integer = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := strconv.Atoi(s); err != nil {
		return errNotInteger
	}
	return nil
})

// NewPatient trims the form, checks that name, age and condition are
// present and that age is an integer, and builds the record.
func NewPatient(f PatientForm) (models.Patient, error) {
	f = PatientForm{
		Name:      strings.TrimSpace(f.Name),
		Age:       strings.TrimSpace(f.Age),
		Condition: strings.TrimSpace(f.Condition),
		Notes:     strings.TrimSpace(f.Notes),
	}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Age, validation.Required, integer),
		validation.Field(&f.Condition, validation.Required),
	)
	if err != nil {
		return models.Patient{}, asValidationError(err)
	}
	age, _ := strconv.Atoi(f.Age)
	return models.Patient{
		Name:      f.Name,
		Age:       age,
		Condition: f.Condition,
		Notes:     f.Notes,
	}, nil
}

// NewAppointment checks that patient and date are present. The date is
// kept as submitted; a malformed value is not an error here.
func NewAppointment(f AppointmentForm) (models.Appointment, error) {
	f = AppointmentForm{
		Patient: strings.TrimSpace(f.Patient),
		Date:    strings.TrimSpace(f.Date),
		Notes:   strings.TrimSpace(f.Notes),
	}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Patient, validation.Required),
		validation.Field(&f.Date, validation.Required),
	)
	if err != nil {
		return models.Appointment{}, asValidationError(err)
	}
	return models.Appointment{Patient: f.Patient, Date: f.Date, Notes: f.Notes}, nil
}

// NewPlan checks that patient and plan are present.
func NewPlan(f PlanForm) (models.Plan, error) {
	f = PlanForm{
		Patient: strings.TrimSpace(f.Patient),
		Plan:    strings.TrimSpace(f.Plan),
	}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Patient, validation.Required),
		validation.Field(&f.Plan, validation.Required),
	)
	if err != nil {
		return models.Plan{}, asValidationError(err)
	}
	return models.Plan{Patient: f.Patient, Plan: f.Plan}, nil
}

func asValidationError(err error) error {
	fields := make(map[string]string)
	var errs validation.Errors
	if errors.As(err, &errs) {
		for name, fieldErr := range errs {
			fields[name] = fieldErr.Error()
		}
	}
	return &ValidationError{Fields: fields}
}
