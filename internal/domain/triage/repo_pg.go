package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagecare/triage/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

const caseCols = `id, patient_token, age_group, sex, pregnancy_status, district,
	patient_relation, consent_care, consent_data, consent_follow_up,
	complaint_category, complaint_text, severity, duration, progression,
	indicators, chronic_conditions, medications, immunocompromised,
	danger_signs, has_red_flags, risk_score, risk_level, risk_confidence,
	follow_up_priority, status, version, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var indicators []byte
	err := row.Scan(&c.ID, &c.PatientToken, &c.AgeGroup, &c.Sex, &c.PregnancyStatus, &c.District,
		&c.PatientRelation, &c.ConsentCare, &c.ConsentData, &c.ConsentFollowUp,
		&c.ComplaintCategory, &c.ComplaintText, &c.Severity, &c.Duration, &c.Progression,
		&indicators, &c.ChronicConditions, &c.Medications, &c.Immunocompromised,
		&c.DangerSigns, &c.HasRedFlags, &c.RiskScore, &c.RiskLevel, &c.RiskConfidence,
		&c.FollowUpPriority, &c.Status, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Indicators = map[string]bool{}
	if len(indicators) > 0 {
		if err := json.Unmarshal(indicators, &c.Indicators); err != nil {
			return nil, fmt.Errorf("decode indicators: %w", err)
		}
	}
	return &c, nil
}

func encodeIndicators(c *Case) ([]byte, error) {
	if c.Indicators == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Indicators)
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	indicators, err := encodeIndicators(c)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO triage_case (id, patient_token, age_group, sex, pregnancy_status, district,
			patient_relation, consent_care, consent_data, consent_follow_up,
			complaint_category, complaint_text, severity, duration, progression,
			indicators, chronic_conditions, medications, immunocompromised,
			danger_signs, has_red_flags, risk_score, risk_level, risk_confidence,
			follow_up_priority, status, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		c.ID, c.PatientToken, c.AgeGroup, c.Sex, c.PregnancyStatus, c.District,
		c.PatientRelation, c.ConsentCare, c.ConsentData, c.ConsentFollowUp,
		c.ComplaintCategory, c.ComplaintText, c.Severity, c.Duration, c.Progression,
		indicators, c.ChronicConditions, c.Medications, c.Immunocompromised,
		c.DangerSigns, c.HasRedFlags, c.RiskScore, c.RiskLevel, c.RiskConfidence,
		c.FollowUpPriority, c.Status, c.Version)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+caseCols+` FROM triage_case WHERE id = $1`, id))
}

func (r *caseRepoPG) Update(ctx context.Context, c *Case) error {
	indicators, err := encodeIndicators(c)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE triage_case SET pregnancy_status=$2, complaint_category=$3, complaint_text=$4,
			severity=$5, duration=$6, progression=$7, indicators=$8,
			chronic_conditions=$9, medications=$10, immunocompromised=$11,
			danger_signs=$12, has_red_flags=$13, risk_score=$14, risk_level=$15,
			risk_confidence=$16, follow_up_priority=$17, status=$18, version=$19,
			updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.PregnancyStatus, c.ComplaintCategory, c.ComplaintText,
		c.Severity, c.Duration, c.Progression, indicators,
		c.ChronicConditions, c.Medications, c.Immunocompromised,
		c.DangerSigns, c.HasRedFlags, c.RiskScore, c.RiskLevel,
		c.RiskConfidence, c.FollowUpPriority, c.Status, c.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

func (r *caseRepoPG) List(ctx context.Context, limit, offset int) ([]*Case, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM triage_case`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+caseCols+` FROM triage_case ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// =========== Decision Repository ===========

type decisionRepoPG struct{ pool *pgxpool.Pool }

func NewDecisionRepoPG(pool *pgxpool.Pool) DecisionRepository { return &decisionRepoPG{pool: pool} }

const decisionCols = `id, case_id, case_version, risk_level, decision_basis,
	follow_up_priority, facility_type, action_text, disclaimers, reasoning,
	is_emergency, follow_up_required, follow_up_timeframe, created_at`

func scanDecision(row pgx.Row) (*Decision, error) {
	var d Decision
	err := row.Scan(&d.ID, &d.CaseID, &d.CaseVersion, &d.RiskLevel, &d.DecisionBasis,
		&d.FollowUpPriority, &d.FacilityType, &d.ActionText, &d.Disclaimers, &d.Reasoning,
		&d.IsEmergency, &d.FollowUpRequired, &d.FollowUpTimeframe, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *decisionRepoPG) Create(ctx context.Context, d *Decision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO triage_decision (id, case_id, case_version, risk_level, decision_basis,
			follow_up_priority, facility_type, action_text, disclaimers, reasoning,
			is_emergency, follow_up_required, follow_up_timeframe)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		d.ID, d.CaseID, d.CaseVersion, d.RiskLevel, d.DecisionBasis,
		d.FollowUpPriority, d.FacilityType, d.ActionText, d.Disclaimers, d.Reasoning,
		d.IsEmergency, d.FollowUpRequired, d.FollowUpTimeframe)
	return err
}

func (r *decisionRepoPG) LatestByCase(ctx context.Context, caseID uuid.UUID) (*Decision, error) {
	return scanDecision(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+decisionCols+` FROM triage_decision WHERE case_id = $1 ORDER BY case_version DESC LIMIT 1`, caseID))
}

func (r *decisionRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID, limit, offset int) ([]*Decision, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM triage_decision WHERE case_id = $1`, caseID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+decisionCols+` FROM triage_decision WHERE case_id = $1 ORDER BY case_version DESC LIMIT $2 OFFSET $3`,
		caseID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== Finding Repository ===========

type findingRepoPG struct{ pool *pgxpool.Pool }

func NewFindingRepoPG(pool *pgxpool.Pool) FindingRepository { return &findingRepoPG{pool: pool} }

func (r *findingRepoPG) Append(ctx context.Context, records []*FindingRecord) error {
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		// The log is append-only per (case, sign); reruns of the same sign
		// are no-ops.
		_, err := conn(ctx, r.pool).Exec(ctx, `
			INSERT INTO case_finding (id, case_id, case_version, name, category, severity, source, confidence)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (case_id, name) DO NOTHING`,
			rec.ID, rec.CaseID, rec.CaseVersion, rec.Name, rec.Category, rec.Severity, rec.Source, rec.Confidence)
		if err != nil {
			return fmt.Errorf("append finding %s: %w", rec.Name, err)
		}
	}
	return nil
}

func (r *findingRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*FindingRecord, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, case_id, case_version, name, category, severity, source, confidence, detected_at
		FROM case_finding WHERE case_id = $1 ORDER BY detected_at, name`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*FindingRecord
	for rows.Next() {
		var rec FindingRecord
		if err := rows.Scan(&rec.ID, &rec.CaseID, &rec.CaseVersion, &rec.Name, &rec.Category,
			&rec.Severity, &rec.Source, &rec.Confidence, &rec.DetectedAt); err != nil {
			return nil, err
		}
		items = append(items, &rec)
	}
	return items, rows.Err()
}
