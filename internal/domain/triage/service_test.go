package triage

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock repositories --

type mockCaseRepo struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*Case
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{cases: make(map[uuid.UUID]*Case)}
}

func (m *mockCaseRepo) Create(_ context.Context, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.cases[c.ID] = c.Clone()
	return nil
}

func (m *mockCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return c.Clone(), nil
}

func (m *mockCaseRepo) Update(_ context.Context, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; !ok {
		return ErrCaseNotFound
	}
	m.cases[c.ID] = c.Clone()
	return nil
}

func (m *mockCaseRepo) List(_ context.Context, limit, offset int) ([]*Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Case
	for _, c := range m.cases {
		out = append(out, c.Clone())
	}
	return out, len(out), nil
}

type mockDecisionRepo struct {
	mu        sync.Mutex
	decisions []*Decision
}

func (m *mockDecisionRepo) Create(_ context.Context, d *Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	m.decisions = append(m.decisions, &cp)
	return nil
}

func (m *mockDecisionRepo) LatestByCase(_ context.Context, caseID uuid.UUID) (*Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Decision
	for _, d := range m.decisions {
		if d.CaseID != caseID {
			continue
		}
		if latest == nil || d.CaseVersion > latest.CaseVersion {
			latest = d
		}
	}
	if latest == nil {
		return nil, ErrCaseNotFound
	}
	return latest, nil
}

func (m *mockDecisionRepo) ListByCase(_ context.Context, caseID uuid.UUID, limit, offset int) ([]*Decision, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Decision
	for _, d := range m.decisions {
		if d.CaseID == caseID {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

type mockFindingRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]map[string]*FindingRecord
}

func newMockFindingRepo() *mockFindingRepo {
	return &mockFindingRepo{records: make(map[uuid.UUID]map[string]*FindingRecord)}
}

func (m *mockFindingRepo) Append(_ context.Context, records []*FindingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		byName, ok := m.records[rec.CaseID]
		if !ok {
			byName = make(map[string]*FindingRecord)
			m.records[rec.CaseID] = byName
		}
		// Append-only per (case, sign).
		if _, exists := byName[rec.Name]; exists {
			continue
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		cp := *rec
		byName[rec.Name] = &cp
	}
	return nil
}

func (m *mockFindingRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*FindingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*FindingRecord
	for _, rec := range m.records[caseID] {
		out = append(out, rec)
	}
	return out, nil
}

type mockReferralSink struct {
	mu    sync.Mutex
	calls []*Decision
}

func (m *mockReferralSink) DecisionProduced(_ context.Context, c *Case, d *Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, d)
	return nil
}

func newTestService() (*Service, *mockCaseRepo, *mockDecisionRepo, *mockFindingRepo, *mockReferralSink) {
	cases := newMockCaseRepo()
	decisions := &mockDecisionRepo{}
	findings := newMockFindingRepo()
	sink := &mockReferralSink{}
	svc := NewService(cases, decisions, findings, sink, nil, zerolog.Nop())
	return svc, cases, decisions, findings, sink
}

func TestSubmitIntakeHappyPath(t *testing.T) {
	svc, cases, decisions, _, sink := newTestService()
	ctx := context.Background()

	res, err := svc.SubmitIntake(ctx, validIntake())
	if err != nil {
		t.Fatalf("SubmitIntake: %v", err)
	}
	if res.Case.ID == uuid.Nil {
		t.Fatal("case ID not assigned")
	}
	if res.Case.Version != 1 {
		t.Errorf("version = %d, want 1", res.Case.Version)
	}
	if res.Case.Status != CaseStatusDecided {
		t.Errorf("status = %q, want decided", res.Case.Status)
	}

	stored, err := cases.GetByID(ctx, res.Case.ID)
	if err != nil {
		t.Fatalf("stored case: %v", err)
	}
	if stored.RiskLevel != res.Decision.RiskLevel {
		t.Errorf("stored level %s != decision level %s", stored.RiskLevel, res.Decision.RiskLevel)
	}
	if len(decisions.decisions) != 1 {
		t.Errorf("decision count = %d, want 1", len(decisions.decisions))
	}
	if len(sink.calls) != 1 {
		t.Errorf("referral sink calls = %d, want 1", len(sink.calls))
	}
}

func TestSubmitIntakeRejectsInvalidBeforePersisting(t *testing.T) {
	svc, cases, decisions, _, sink := newTestService()

	_, err := svc.SubmitIntake(context.Background(), map[string]any{"sex": "male", "pregnancy_status": "yes"})
	if _, ok := AsValidationError(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(cases.cases) != 0 {
		t.Error("invalid submission must not create a case")
	}
	if len(decisions.decisions) != 0 || len(sink.calls) != 0 {
		t.Error("invalid submission must not produce a decision or referral")
	}
}

func TestAddIndicatorsReRunsPipeline(t *testing.T) {
	svc, _, decisions, findings, _ := newTestService()
	ctx := context.Background()

	raw := validIntake()
	raw["complaint_category"] = "fever"
	raw["severity"] = "moderate"
	res, err := svc.SubmitIntake(ctx, raw)
	if err != nil {
		t.Fatalf("SubmitIntake: %v", err)
	}
	if res.Decision.RiskLevel != RiskLow {
		t.Fatalf("initial level = %s, want low", res.Decision.RiskLevel)
	}

	res2, err := svc.AddIndicators(ctx, res.Case.ID, IndicatorUpdate{
		Indicators: map[string]bool{"high_fever": true, "stiff_neck": true},
		Severity:   SeverityVerySevere,
	})
	if err != nil {
		t.Fatalf("AddIndicators: %v", err)
	}
	if res2.Case.Version != 2 {
		t.Errorf("version = %d, want 2", res2.Case.Version)
	}
	if res2.Decision.RiskLevel != RiskHigh {
		t.Errorf("level after escalation = %s, want high", res2.Decision.RiskLevel)
	}
	if len(decisions.decisions) != 2 {
		t.Errorf("decision history = %d, want 2", len(decisions.decisions))
	}

	recs, _ := findings.ListByCase(ctx, res2.Case.ID)
	if len(recs) == 0 {
		t.Error("findings not persisted")
	}
}

func TestAddIndicatorsCannotClearTrueIndicator(t *testing.T) {
	svc, cases, _, _, _ := newTestService()
	ctx := context.Background()

	raw := validIntake()
	raw["indicators"] = map[string]any{"high_fever": true}
	res, err := svc.SubmitIntake(ctx, raw)
	if err != nil {
		t.Fatalf("SubmitIntake: %v", err)
	}

	if _, err := svc.AddIndicators(ctx, res.Case.ID, IndicatorUpdate{
		Indicators: map[string]bool{"high_fever": false},
	}); err != nil {
		t.Fatalf("AddIndicators: %v", err)
	}
	stored, _ := cases.GetByID(ctx, res.Case.ID)
	if !stored.Indicators["high_fever"] {
		t.Error("a true indicator must never be cleared by a later turn")
	}
}

func TestAddIndicatorsValidatesUpdate(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.AddIndicators(context.Background(), uuid.New(), IndicatorUpdate{Severity: "apocalyptic"})
	if _, ok := AsValidationError(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddIndicatorsUnknownCase(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.AddIndicators(context.Background(), uuid.New(), IndicatorUpdate{
		Indicators: map[string]bool{"high_fever": true},
	})
	if err != ErrCaseNotFound {
		t.Fatalf("err = %v, want ErrCaseNotFound", err)
	}
}

func TestFindingsAccumulateAcrossTurns(t *testing.T) {
	svc, cases, _, findings, _ := newTestService()
	ctx := context.Background()

	raw := validIntake()
	raw["indicators"] = map[string]any{"fast_breathing": true}
	res, err := svc.SubmitIntake(ctx, raw)
	if err != nil {
		t.Fatalf("SubmitIntake: %v", err)
	}

	// A later turn adds a different sign; both stay on the case record.
	if _, err := svc.AddIndicators(ctx, res.Case.ID, IndicatorUpdate{
		Indicators: map[string]bool{"stiff_neck": true},
	}); err != nil {
		t.Fatalf("AddIndicators: %v", err)
	}

	stored, _ := cases.GetByID(ctx, res.Case.ID)
	for _, want := range []string{"fast_breathing", "stiff_neck"} {
		if !stored.HasDangerSign(want) {
			t.Errorf("case lost accumulated sign %s: %v", want, stored.DangerSigns)
		}
	}
	recs, _ := findings.ListByCase(ctx, res.Case.ID)
	if len(recs) != 2 {
		t.Errorf("finding log = %d records, want 2", len(recs))
	}
}

func TestConcurrentRunsSamePatientSerialized(t *testing.T) {
	svc, _, decisions, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.SubmitIntake(ctx, validIntake())
	if err != nil {
		t.Fatalf("SubmitIntake: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddIndicators(ctx, res.Case.ID, IndicatorUpdate{
				Indicators: map[string]bool{"high_fever": true},
			})
			if err != nil {
				t.Errorf("AddIndicators: %v", err)
			}
		}()
	}
	wg.Wait()

	// One initial decision plus one per concurrent turn; each run saw a
	// consistent snapshot.
	if len(decisions.decisions) != 9 {
		t.Errorf("decision count = %d, want 9", len(decisions.decisions))
	}
	latest, err := svc.LatestDecision(ctx, res.Case.ID)
	if err != nil {
		t.Fatalf("LatestDecision: %v", err)
	}
	if latest.CaseVersion != 9 {
		t.Errorf("latest version = %d, want 9", latest.CaseVersion)
	}
}

func TestLatestDecisionUnknownCase(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	if _, err := svc.LatestDecision(context.Background(), uuid.New()); err != ErrCaseNotFound {
		t.Fatalf("err = %v, want ErrCaseNotFound", err)
	}
}
