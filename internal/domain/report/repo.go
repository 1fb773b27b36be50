package report

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for report metadata and comments.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	// CreateWithComment inserts the report and its initial comment atomically.
	CreateWithComment(ctx context.Context, r *Report, c *Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddComment(ctx context.Context, c *Comment) error
	ListComments(ctx context.Context, reportID uuid.UUID) ([]*Comment, error)
}
