// Package clinic owns the patient, appointment and exercise plan
// collections: it builds records from form input, keeps them in insertion
// order and persists them to the key-value store after every change.
package clinic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/physiodesk/internal/kvstore"
	"github.com/starford/physiodesk/internal/models"
)

// ChangeFunc is called with the store key of a collection after it changed.
type ChangeFunc func(key string)

// Service is the single mutator of the clinic collections. Every operation
// runs to completion under one lock, so the in-memory collections and the
// stored ones never diverge.
type Service struct {
	mu       sync.Mutex
	st       state
	codec    *Codec
	store    kvstore.Provider
	logger   *slog.Logger
	onChange ChangeFunc
}

// NewService creates a service over store. Call Load to hydrate it.
func NewService(store kvstore.Provider, logger *slog.Logger) *Service {
	return &Service{
		codec:  NewCodec(store, logger),
		store:  store,
		logger: logger,
	}
}

// OnChange registers fn to be called after every collection change.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Load replaces the in-memory collections with the stored ones.
func (s *Service) Load(_ context.Context) error {
	snap, err := s.codec.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.st.replace(snap)
	s.mu.Unlock()

	c := snap.Counts()
	s.logger.Info("collections loaded",
		slog.Int("patients", c.Patients),
		slog.Int("appointments", c.Appointments),
		slog.Int("exercise_plans", c.ExercisePlans))
	return nil
}

// Reload re-reads a single collection from the store, used when the store
// was changed by another writer.
func (s *Service) Reload(_ context.Context, key string) error {
	s.mu.Lock()
	var err error
	switch key {
	case models.KeyPatients:
		var items []models.Patient
		if items, err = loadKey[models.Patient](s.codec, key); err == nil {
			s.st.patients = items
		}
	case models.KeyAppointments:
		var items []models.Appointment
		if items, err = loadKey[models.Appointment](s.codec, key); err == nil {
			s.st.appointments = items
		}
	case models.KeyExercisePlans:
		var items []models.Plan
		if items, err = loadKey[models.Plan](s.codec, key); err == nil {
			s.st.plans = items
		}
	default:
		err = fmt.Errorf("clinic: unknown collection %q", key)
	}
	fn := s.onChange
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.logger.Info("collection reloaded", slog.String("key", key))
	if fn != nil {
		fn(key)
	}
	return nil
}

// Reset clears the store and empties every collection.
func (s *Service) Reset(_ context.Context) error {
	s.mu.Lock()
	if err := s.store.Clear(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("clinic: reset: %w", err)
	}
	s.st = state{}
	fn := s.onChange
	s.mu.Unlock()

	s.logger.Info("store cleared")
	if fn != nil {
		for _, key := range models.Keys {
			fn(key)
		}
	}
	return nil
}

// AddPatient validates the form, appends the patient and persists.
func (s *Service) AddPatient(_ context.Context, f PatientForm) (models.Patient, error) {
	p, err := NewPatient(f)
	if err != nil {
		return models.Patient{}, err
	}
	if err := add(s, models.KeyPatients, &s.st.patients, p); err != nil {
		return models.Patient{}, err
	}
	return p, nil
}

// AddAppointment validates the form, appends the appointment and persists.
func (s *Service) AddAppointment(_ context.Context, f AppointmentForm) (models.Appointment, error) {
	a, err := NewAppointment(f)
	if err != nil {
		return models.Appointment{}, err
	}
	if err := add(s, models.KeyAppointments, &s.st.appointments, a); err != nil {
		return models.Appointment{}, err
	}
	return a, nil
}

// AddPlan validates the form, appends the plan and persists.
func (s *Service) AddPlan(_ context.Context, f PlanForm) (models.Plan, error) {
	p, err := NewPlan(f)
	if err != nil {
		return models.Plan{}, err
	}
	if err := add(s, models.KeyExercisePlans, &s.st.plans, p); err != nil {
		return models.Plan{}, err
	}
	return p, nil
}

// add appends rec to coll and saves. A failed save removes rec again.
func add[T any](s *Service, key string, coll *[]T, rec T) error {
	s.mu.Lock()
	*coll = append(*coll, rec)
	if err := s.codec.Save(s.st.snapshot()); err != nil {
		*coll = (*coll)[:len(*coll)-1]
		s.mu.Unlock()
		s.logger.Error("save failed, record discarded", slog.String("key", key), slog.String("error", err.Error()))
		return err
	}
	fn := s.onChange
	s.mu.Unlock()

	s.logger.Debug("record added", slog.String("key", key))
	if fn != nil {
		fn(key)
	}
	return nil
}

// Snapshot returns a copy of every collection.
func (s *Service) Snapshot(_ context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.snapshot()
}

// Patients returns the patients in insertion order.
func (s *Service) Patients(_ context.Context) []models.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.st.patients)
}

// Appointments returns the appointments in insertion order.
func (s *Service) Appointments(_ context.Context) []models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.st.appointments)
}

// Plans returns the exercise plans in insertion order.
func (s *Service) Plans(_ context.Context) []models.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.st.plans)
}

// Counts returns the collection lengths.
func (s *Service) Counts(_ context.Context) Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Patients:      len(s.st.patients),
		Appointments:  len(s.st.appointments),
		ExercisePlans: len(s.st.plans),
	}
}
