package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for patients. Implementations return
// ErrNotFound for missing rows.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, status Status, limit, offset int) ([]*Patient, int, error)
	Stats(ctx context.Context, reminderCutoff time.Time) (*Stats, error)

	// SetCheckupDate records a checkup and clears the reminder flag so the
	// next annual cycle can notify again.
	SetCheckupDate(ctx context.Context, id uuid.UUID, date time.Time, reminderEmail *string) error

	// ListReminderDue returns active patients whose last checkup is on or
	// before the cutoff and who have not been reminded yet.
	ListReminderDue(ctx context.Context, cutoff time.Time) ([]*Patient, error)

	// MarkReminderSent sets reminder_sent only if the patient's checkup date
	// is still the one the reminder was computed from. It reports whether the
	// flag was actually set.
	MarkReminderSent(ctx context.Context, id uuid.UUID, lastCheckupDate time.Time) (bool, error)
}
