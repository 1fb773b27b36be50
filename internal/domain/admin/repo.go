package admin

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for admin accounts.
type Repository interface {
	Create(ctx context.Context, a *Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Admin, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
