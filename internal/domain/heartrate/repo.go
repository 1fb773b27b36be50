package heartrate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for heart-rate readings. History is
// returned in chronological order (oldest first).
type Repository interface {
	Create(ctx context.Context, r *Reading) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Reading, int, error)
}
