package feedback

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for feedback entries.
type Repository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Feedback, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Feedback, int, error)

	// SetReply attaches a reply only if none exists yet; it reports whether
	// the reply was recorded.
	SetReply(ctx context.Context, id uuid.UUID, reply string, adminID uuid.UUID) (bool, error)
}
