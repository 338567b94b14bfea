package triage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/triagecare/triage/internal/platform/db"
)

// ReferralSink receives the routing payload for the facility-matching
// collaborator whenever a decision is produced. Implemented by the referral
// domain; a nil sink disables routing output.
type ReferralSink interface {
	DecisionProduced(ctx context.Context, c *Case, d *Decision) error
}

// Service orchestrates the triage pipeline: it serializes runs per patient
// token, executes the pure stages, and commits the updated case, the decision,
// and the finding log in one transaction.
type Service struct {
	cases     CaseRepository
	decisions DecisionRepository
	findings  FindingRepository
	referrals ReferralSink
	pool      *pgxpool.Pool
	logger    zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(cases CaseRepository, decisions DecisionRepository, findings FindingRepository,
	referrals ReferralSink, pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{
		cases:     cases,
		decisions: decisions,
		findings:  findings,
		referrals: referrals,
		pool:      pool,
		logger:    logger,
		locks:     map[string]*sync.Mutex{},
	}
}

// inTx runs fn transactionally when a pool is configured. Without a pool
// (unit tests with in-memory repositories) fn runs directly.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.pool, fn)
}

// tokenLock returns the advisory lock for a patient token, creating it on
// first use. Locks are never removed; the token space is bounded by active
// patients.
func (s *Service) tokenLock(token string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[token]
	if !ok {
		l = &sync.Mutex{}
		s.locks[token] = l
	}
	return l
}

// SubmitIntake validates a raw submission, creates the case, and runs the
// full pipeline. A *ValidationError is returned before anything is persisted.
func (s *Service) SubmitIntake(ctx context.Context, raw map[string]any) (*PipelineResult, error) {
	c, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	lock := s.tokenLock(c.PatientToken)
	lock.Lock()
	defer lock.Unlock()

	var result *PipelineResult
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.cases.Create(ctx, c); err != nil {
			return fmt.Errorf("create case: %w", err)
		}
		res, err := s.runAndCommit(ctx, c)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logDecision(result)
	return result, nil
}

// IndicatorUpdate carries incremental evidence collected on later
// conversation turns. Indicator values may only be added or confirmed;
// clinical fields overwrite when provided.
type IndicatorUpdate struct {
	Indicators    map[string]bool `json:"indicators"`
	Severity      Severity        `json:"severity,omitempty"`
	Duration      Duration        `json:"duration,omitempty"`
	Progression   Progression     `json:"progression,omitempty"`
	ComplaintText string          `json:"complaint_text,omitempty"`
}

func (u *IndicatorUpdate) validate() error {
	verr := &ValidationError{}
	if u.Severity != "" && !validSeverities[u.Severity] {
		verr.add("severity", fmt.Sprintf("unknown value %q", u.Severity))
	}
	if u.Duration != "" && !validDurations[u.Duration] {
		verr.add("duration", fmt.Sprintf("unknown value %q", u.Duration))
	}
	if u.Progression != "" && !validProgressions[u.Progression] {
		verr.add("progression", fmt.Sprintf("unknown value %q", u.Progression))
	}
	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}

// AddIndicators merges new evidence into an existing case and re-runs the
// pipeline. The case's accumulated findings are preserved; risk fields are
// overwritten by the new run.
func (s *Service) AddIndicators(ctx context.Context, caseID uuid.UUID, update IndicatorUpdate) (*PipelineResult, error) {
	if err := update.validate(); err != nil {
		return nil, err
	}

	existing, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	lock := s.tokenLock(existing.PatientToken)
	lock.Lock()
	defer lock.Unlock()

	var result *PipelineResult
	err = s.inTx(ctx, func(ctx context.Context) error {
		// Re-read inside the transaction so the run sees the latest turn.
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return err
		}
		for name, v := range update.Indicators {
			if v {
				c.Indicators[name] = true
			} else if _, present := c.Indicators[name]; !present {
				c.Indicators[name] = false
			}
		}
		if update.Severity != "" {
			c.Severity = update.Severity
		}
		if update.Duration != "" {
			c.Duration = update.Duration
		}
		if update.Progression != "" {
			c.Progression = update.Progression
		}
		if update.ComplaintText != "" {
			c.ComplaintText = update.ComplaintText
		}

		res, err := s.runAndCommit(ctx, c)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logDecision(result)
	return result, nil
}

// runAndCommit executes the pipeline and persists every output within the
// caller's transaction. Nothing is committed if any step fails.
func (s *Service) runAndCommit(ctx context.Context, c *Case) (*PipelineResult, error) {
	res, err := Run(c)
	if err != nil {
		return nil, err
	}

	if err := s.cases.Update(ctx, res.Case); err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}
	if err := s.decisions.Create(ctx, res.Decision); err != nil {
		return nil, fmt.Errorf("persist decision: %w", err)
	}
	if len(res.Detection.Findings) > 0 {
		records := make([]*FindingRecord, 0, len(res.Detection.Findings))
		for _, f := range res.Detection.Findings {
			records = append(records, &FindingRecord{
				CaseID:      res.Case.ID,
				CaseVersion: res.Case.Version,
				Name:        f.Name,
				Category:    f.Category,
				Severity:    f.Severity,
				Source:      f.Source,
				Confidence:  f.Confidence,
			})
		}
		if err := s.findings.Append(ctx, records); err != nil {
			return nil, fmt.Errorf("append findings: %w", err)
		}
	}
	if s.referrals != nil {
		if err := s.referrals.DecisionProduced(ctx, res.Case, res.Decision); err != nil {
			return nil, fmt.Errorf("emit referral: %w", err)
		}
	}
	return res, nil
}

func (s *Service) logDecision(res *PipelineResult) {
	s.logger.Info().
		Str("case_id", res.Case.ID.String()).
		Int("case_version", res.Case.Version).
		Str("risk_level", string(res.Decision.RiskLevel)).
		Str("decision_basis", string(res.Decision.DecisionBasis)).
		Str("facility_type", string(res.Decision.FacilityType)).
		Bool("is_emergency", res.Decision.IsEmergency).
		Int("findings", len(res.Detection.Findings)).
		Msg("triage decision")
}

// GetCase returns a case by ID.
func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.cases.GetByID(ctx, id)
}

// ListCases pages through case records.
func (s *Service) ListCases(ctx context.Context, limit, offset int) ([]*Case, int, error) {
	return s.cases.List(ctx, limit, offset)
}

// LatestDecision returns the most recent decision for a case.
func (s *Service) LatestDecision(ctx context.Context, caseID uuid.UUID) (*Decision, error) {
	return s.decisions.LatestByCase(ctx, caseID)
}

// ListDecisions returns the decision history for a case, newest first.
func (s *Service) ListDecisions(ctx context.Context, caseID uuid.UUID, limit, offset int) ([]*Decision, int, error) {
	return s.decisions.ListByCase(ctx, caseID, limit, offset)
}

// ListFindings returns the append-only finding log for a case.
func (s *Service) ListFindings(ctx context.Context, caseID uuid.UUID) ([]*FindingRecord, error) {
	return s.findings.ListByCase(ctx, caseID)
}
