package clinic

import "github.com/starford/physiodesk/internal/models"

// Counts holds the length of each collection.
type Counts struct {
	Patients      int `json:"patients"`
	Appointments  int `json:"appointments"`
	ExercisePlans int `json:"exercise_plans"`
}

// Snapshot is a point-in-time copy of the three collections in insertion
// order. Mutating a snapshot never affects the service.
type Snapshot struct {
	Patients     []models.Patient
	Appointments []models.Appointment
	Plans        []models.Plan
}

// Counts returns the collection lengths.
func (s Snapshot) Counts() Counts {
	return Counts{
		Patients:      len(s.Patients),
		Appointments:  len(s.Appointments),
		ExercisePlans: len(s.Plans),
	}
}

// state is the live, append-only set of collections owned by a Service.
type state struct {
	patients     []models.Patient
	appointments []models.Appointment
	plans        []models.Plan
}

func (st *state) snapshot() Snapshot {
	return Snapshot{
		Patients:     clone(st.patients),
		Appointments: clone(st.appointments),
		Plans:        clone(st.plans),
	}
}

func (st *state) replace(s Snapshot) {
	st.patients = clone(s.Patients)
	st.appointments = clone(s.Appointments)
	st.plans = clone(s.Plans)
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
