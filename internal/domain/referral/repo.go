package referral

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists referral records.
type Repository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Referral, int, error)
}
