package referral

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/triagecare/triage/internal/domain/triage"
)

// Service creates referral records from triage decisions and exposes them to
// the facility-matching collaborator. It implements triage.ReferralSink.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// DecisionProduced records the routing payload for a freshly synthesized
// decision. Self-care outcomes produce no referral.
func (s *Service) DecisionProduced(ctx context.Context, c *triage.Case, d *triage.Decision) error {
	if d.FacilityType == triage.FacilitySelfCare {
		return nil
	}
	ref := &Referral{
		CaseID:            c.ID,
		DecisionID:        d.ID,
		RiskLevel:         d.RiskLevel,
		FacilityType:      d.FacilityType,
		ComplaintCategory: c.ComplaintCategory,
		District:          c.District,
		IsEmergency:       d.IsEmergency,
		Status:            StatusPending,
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	s.logger.Info().
		Str("referral_id", ref.ID.String()).
		Str("case_id", c.ID.String()).
		Str("facility_type", string(ref.FacilityType)).
		Bool("is_emergency", ref.IsEmergency).
		Msg("referral queued")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPending returns referrals awaiting dispatch, emergencies first.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*Referral, int, error) {
	return s.repo.ListByStatus(ctx, StatusPending, limit, offset)
}

// SetStatus transitions a referral; the matching collaborator marks records
// dispatched once a facility accepted them.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
