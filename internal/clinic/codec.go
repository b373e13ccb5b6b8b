package clinic

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/physiodesk/internal/kvstore"
	"github.com/starford/physiodesk/internal/models"
)

// Outcome describes how a stored collection was decoded.
type Outcome int

const (
	// Decoded means the stored value was a valid collection.
	Decoded Outcome = iota
	// Absent means the key was not in the store.
	Absent
	// Invalid means the stored value was not a serialized collection and
	// an empty one was used instead.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Decoded:
		return "decoded"
	case Absent:
		return "absent"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// decodeCollection parses a stored JSON array, falling back to an empty
// collection when the key is absent or the value is not a JSON array of T.
func decodeCollection[T any](raw string, found bool) ([]T, Outcome) {
	if !found {
		return []T{}, Absent
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []T{}, Invalid
	}
	return items, Decoded
}

func encodeCollection[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Codec maps the three collections to and from their fixed store keys.
type Codec struct {
	store  kvstore.Provider
	logger *slog.Logger
}

// NewCodec creates a codec over store.
func NewCodec(store kvstore.Provider, logger *slog.Logger) *Codec {
	return &Codec{store: store, logger: logger}
}

// Save writes every collection under its key.
func (c *Codec) Save(s Snapshot) error {
	patients, err := encodeCollection(s.Patients)
	if err != nil {
		return fmt.Errorf("clinic: encode %s: %w", models.KeyPatients, err)
	}
	appointments, err := encodeCollection(s.Appointments)
	if err != nil {
		return fmt.Errorf("clinic: encode %s: %w", models.KeyAppointments, err)
	}
	plans, err := encodeCollection(s.Plans)
	if err != nil {
		return fmt.Errorf("clinic: encode %s: %w", models.KeyExercisePlans, err)
	}
	if err := c.store.SetAll(map[string]string{
		models.KeyPatients:      patients,
		models.KeyAppointments:  appointments,
		models.KeyExercisePlans: plans,
	}); err != nil {
		return fmt.Errorf("clinic: save: %w", err)
	}
	return nil
}

// Load reads every collection. Values that do not decode load as empty;
// only a failing store returns an error.
func (c *Codec) Load() (Snapshot, error) {
	var s Snapshot
	var err error
	if s.Patients, err = loadKey[models.Patient](c, models.KeyPatients); err != nil {
		return Snapshot{}, err
	}
	if s.Appointments, err = loadKey[models.Appointment](c, models.KeyAppointments); err != nil {
		return Snapshot{}, err
	}
	if s.Plans, err = loadKey[models.Plan](c, models.KeyExercisePlans); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// BackupKey is where an undecodable value of key is copied on load, before
// the next save replaces it.
func BackupKey(key string) string {
	return key + "_invalid"
}

// maxLoggedValue caps how much of an undecodable value goes into the log.
const maxLoggedValue = 512

func loadKey[T any](c *Codec, key string) ([]T, error) {
	raw, found, err := c.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("clinic: load %s: %w", key, err)
	}
	items, outcome := decodeCollection[T](raw, found)
	if outcome == Invalid {
		backup := BackupKey(key)
		if err := c.store.SetAll(map[string]string{backup: raw}); err != nil {
			return nil, fmt.Errorf("clinic: back up invalid %s: %w", key, err)
		}
		logged := raw
		if len(logged) > maxLoggedValue {
			logged = logged[:maxLoggedValue] + "..."
		}
		c.logger.Warn("stored collection is not valid, using empty",
			slog.String("key", key),
			slog.String("backup_key", backup),
			slog.Int("bytes", len(raw)),
			slog.String("value", logged))
	}
	return items, nil
}
