package heartrate

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("heart rate reading not found")
	ErrForbidden = errors.New("not allowed to access these readings")
)

// Physiological bounds for a plausible reading.
const (
	MinBPM = 20
	MaxBPM = 300
)

// Reading maps to the heart_rates table.
type Reading struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	BPM        int       `db:"bpm" json:"bpm"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
