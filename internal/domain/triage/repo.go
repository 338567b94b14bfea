package triage

import (
	"context"

	"github.com/google/uuid"
)

// CaseRepository persists triage case records.
type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	List(ctx context.Context, limit, offset int) ([]*Case, int, error)
}

// DecisionRepository persists the immutable decision produced by each run.
type DecisionRepository interface {
	Create(ctx context.Context, d *Decision) error
	LatestByCase(ctx context.Context, caseID uuid.UUID) (*Decision, error)
	ListByCase(ctx context.Context, caseID uuid.UUID, limit, offset int) ([]*Decision, int, error)
}

// FindingRepository keeps the append-only danger-sign log per case.
type FindingRepository interface {
	Append(ctx context.Context, records []*FindingRecord) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*FindingRecord, error)
}
