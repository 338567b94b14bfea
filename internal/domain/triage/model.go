// Package triage implements the clinical triage decision pipeline: intake
// normalization, danger-sign detection, base risk scoring, clinical-context
// adjustment, and final decision synthesis. All five stages are pure,
// deterministic functions over a case snapshot; the service layer serializes
// runs per patient token and persists results.
package triage

import (
	"time"

	"github.com/google/uuid"
)

// AgeGroup classifies the patient's age band.
type AgeGroup string

const (
	AgeNewborn    AgeGroup = "newborn"
	AgeInfant     AgeGroup = "infant"
	AgeChild1to5  AgeGroup = "child_1_5"
	AgeChild6to12 AgeGroup = "child_6_12"
	AgeTeen       AgeGroup = "teen"
	AgeAdult      AgeGroup = "adult"
	AgeElderly    AgeGroup = "elderly"
)

// ageOrder lists age groups youngest first. Danger-sign applicability walks
// this hierarchy: a sign tagged for an age group also covers younger patients.
var ageOrder = []AgeGroup{
	AgeNewborn, AgeInfant, AgeChild1to5, AgeChild6to12, AgeTeen, AgeAdult, AgeElderly,
}

var validAgeGroups = map[AgeGroup]bool{
	AgeNewborn: true, AgeInfant: true, AgeChild1to5: true, AgeChild6to12: true,
	AgeTeen: true, AgeAdult: true, AgeElderly: true,
}

func ageRank(a AgeGroup) int {
	for i, g := range ageOrder {
		if g == a {
			return i
		}
	}
	return -1
}

// Sex is the patient's reported sex.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

var validSexes = map[Sex]bool{SexMale: true, SexFemale: true, SexOther: true}

// PregnancyStatus is the patient's reported pregnancy state.
type PregnancyStatus string

const (
	PregnancyYes           PregnancyStatus = "yes"
	PregnancyPossible      PregnancyStatus = "possible"
	PregnancyNo            PregnancyStatus = "no"
	PregnancyNotApplicable PregnancyStatus = "not_applicable"
)

var validPregnancyStatuses = map[PregnancyStatus]bool{
	PregnancyYes: true, PregnancyPossible: true, PregnancyNo: true, PregnancyNotApplicable: true,
}

// ComplaintCategory is the coarse classification of the chief complaint.
type ComplaintCategory string

const (
	ComplaintFever         ComplaintCategory = "fever"
	ComplaintBreathing     ComplaintCategory = "breathing"
	ComplaintChestPain     ComplaintCategory = "chest_pain"
	ComplaintBleeding      ComplaintCategory = "bleeding"
	ComplaintHeadache      ComplaintCategory = "headache"
	ComplaintAbdominalPain ComplaintCategory = "abdominal_pain"
	ComplaintVomiting      ComplaintCategory = "vomiting"
	ComplaintDiarrhea      ComplaintCategory = "diarrhea"
	ComplaintConvulsions   ComplaintCategory = "convulsions"
	ComplaintInjury        ComplaintCategory = "injury"
	ComplaintPregnancy     ComplaintCategory = "pregnancy"
	ComplaintWeakness      ComplaintCategory = "weakness"
	ComplaintSkin          ComplaintCategory = "skin"
	ComplaintFeeding       ComplaintCategory = "feeding"
	ComplaintOther         ComplaintCategory = "other"
)

var validComplaints = map[ComplaintCategory]bool{
	ComplaintFever: true, ComplaintBreathing: true, ComplaintChestPain: true,
	ComplaintBleeding: true, ComplaintHeadache: true, ComplaintAbdominalPain: true,
	ComplaintVomiting: true, ComplaintDiarrhea: true, ComplaintConvulsions: true,
	ComplaintInjury: true, ComplaintPregnancy: true, ComplaintWeakness: true,
	ComplaintSkin: true, ComplaintFeeding: true, ComplaintOther: true,
}

// Severity is the reported intensity of the complaint.
type Severity string

const (
	SeverityMild       Severity = "mild"
	SeverityModerate   Severity = "moderate"
	SeveritySevere     Severity = "severe"
	SeverityVerySevere Severity = "very_severe"
)

var validSeverities = map[Severity]bool{
	SeverityMild: true, SeverityModerate: true, SeveritySevere: true, SeverityVerySevere: true,
}

// AtLeast reports whether s is at or above min on the severity scale.
// Unknown severities rank below mild so they never escalate anything.
func (s Severity) AtLeast(min Severity) bool {
	rank := map[Severity]int{SeverityMild: 1, SeverityModerate: 2, SeveritySevere: 3, SeverityVerySevere: 4}
	return rank[s] >= rank[min]
}

// Duration is how long the complaint has persisted.
type Duration string

const (
	DurationUnderHour  Duration = "less_than_1_hour"
	DurationHours      Duration = "hours"
	DurationOneDay     Duration = "1_day"
	Duration2to3Days   Duration = "2_3_days"
	Duration4to7Days   Duration = "4_7_days"
	Duration1to2Weeks  Duration = "1_2_weeks"
	DurationOver2Weeks Duration = "more_than_2_weeks"
)

var validDurations = map[Duration]bool{
	DurationUnderHour: true, DurationHours: true, DurationOneDay: true,
	Duration2to3Days: true, Duration4to7Days: true, Duration1to2Weeks: true,
	DurationOver2Weeks: true,
}

// BeyondOneWeek reports whether the duration exceeds seven days.
func (d Duration) BeyondOneWeek() bool {
	return d == Duration1to2Weeks || d == DurationOver2Weeks
}

// Progression describes how the complaint is evolving.
type Progression string

const (
	ProgressionSudden       Progression = "sudden"
	ProgressionWorsening    Progression = "worsening"
	ProgressionStable       Progression = "stable"
	ProgressionImproving    Progression = "improving"
	ProgressionIntermittent Progression = "intermittent"
)

var validProgressions = map[Progression]bool{
	ProgressionSudden: true, ProgressionWorsening: true, ProgressionStable: true,
	ProgressionImproving: true, ProgressionIntermittent: true,
}

// RiskLevel is the discrete clinical risk tier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{RiskLow: 1, RiskMedium: 2, RiskHigh: 3}

// Below reports whether l is strictly lower risk than other.
func (l RiskLevel) Below(other RiskLevel) bool {
	return riskRank[l] < riskRank[other]
}

// MaxRiskLevel returns the higher of two risk levels.
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if riskRank[a] >= riskRank[b] {
		return a
	}
	return b
}

// FollowUpPriority is the reassessment urgency tier.
type FollowUpPriority string

const (
	FollowUpImmediate FollowUpPriority = "immediate"
	FollowUpUrgent    FollowUpPriority = "urgent"
	FollowUpRoutine   FollowUpPriority = "routine"
)

// FacilityType is the recommended care setting.
type FacilityType string

const (
	FacilitySelfCare     FacilityType = "self_care"
	FacilityClinic       FacilityType = "clinic"
	FacilityHealthCenter FacilityType = "health_center"
	FacilityHospital     FacilityType = "hospital"
	FacilityEmergency    FacilityType = "emergency"
)

var facilityRank = map[FacilityType]int{
	FacilitySelfCare: 1, FacilityClinic: 2, FacilityHealthCenter: 3,
	FacilityHospital: 4, FacilityEmergency: 5,
}

// MaxFacility returns the higher-acuity of two facility types.
func MaxFacility(a, b FacilityType) FacilityType {
	if facilityRank[a] >= facilityRank[b] {
		return a
	}
	return b
}

// FindingCategory groups danger signs along the WHO ABCD axes.
type FindingCategory string

const (
	CategoryAirway      FindingCategory = "airway"
	CategoryBreathing   FindingCategory = "breathing"
	CategoryCirculation FindingCategory = "circulation"
	CategoryDisability  FindingCategory = "disability"
	CategoryAgeSpecific FindingCategory = "age_specific"
	CategoryPregnancy   FindingCategory = "pregnancy"
)

// FindingSeverity is the tier of a detected danger sign.
type FindingSeverity string

const (
	FindingWarning  FindingSeverity = "warning"
	FindingUrgent   FindingSeverity = "urgent"
	FindingCritical FindingSeverity = "critical"
)

var findingSeverityRank = map[FindingSeverity]int{
	FindingWarning: 1, FindingUrgent: 2, FindingCritical: 3,
}

// DetectionSource records which evidence path produced a finding.
type DetectionSource string

const (
	SourceIndicator     DetectionSource = "indicator"
	SourceKeyword       DetectionSource = "keyword"
	SourceEscalation    DetectionSource = "escalation"
	SourceAgeRule       DetectionSource = "age_rule"
	SourcePregnancyRule DetectionSource = "pregnancy_rule"
	SourcePriorState    DetectionSource = "prior_state"
)

// DecisionBasis names the override rule that determined the final risk level.
type DecisionBasis string

const (
	BasisRedFlagOverride    DecisionBasis = "red_flag_override"
	BasisAgeRiskModifier    DecisionBasis = "age_risk_modifier"
	BasisClinicalAdjustment DecisionBasis = "clinical_adjustment"
	BasisComplaintSpecific  DecisionBasis = "complaint_specific"
	BasisAIPrimary          DecisionBasis = "ai_primary"
	BasisConservativeBias   DecisionBasis = "conservative_bias"
)

// Case is the unit of triage work. It accumulates indicators and findings
// across conversation turns; risk fields are overwritten on each run.
type Case struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	PatientToken      string            `db:"patient_token" json:"patient_token"`
	AgeGroup          AgeGroup          `db:"age_group" json:"age_group"`
	Sex               Sex               `db:"sex" json:"sex"`
	PregnancyStatus   PregnancyStatus   `db:"pregnancy_status" json:"pregnancy_status"`
	District          string            `db:"district" json:"district"`
	PatientRelation   string            `db:"patient_relation" json:"patient_relation"`
	ConsentCare       bool              `db:"consent_care" json:"consent_care"`
	ConsentData       bool              `db:"consent_data" json:"consent_data"`
	ConsentFollowUp   bool              `db:"consent_follow_up" json:"consent_follow_up"`
	ComplaintCategory ComplaintCategory `db:"complaint_category" json:"complaint_category"`
	ComplaintText     string            `db:"complaint_text" json:"complaint_text"`
	Severity          Severity          `db:"severity" json:"severity,omitempty"`
	Duration          Duration          `db:"duration" json:"duration,omitempty"`
	Progression       Progression       `db:"progression" json:"progression,omitempty"`
	Indicators        map[string]bool   `db:"indicators" json:"indicators"`
	ChronicConditions []string          `db:"chronic_conditions" json:"chronic_conditions"`
	Medications       []string          `db:"medications" json:"medications"`
	Immunocompromised bool              `db:"immunocompromised" json:"immunocompromised"`
	DangerSigns       []string          `db:"danger_signs" json:"danger_signs"`
	HasRedFlags       bool              `db:"has_red_flags" json:"has_red_flags"`
	RiskScore         float64           `db:"risk_score" json:"risk_score"`
	RiskLevel         RiskLevel         `db:"risk_level" json:"risk_level,omitempty"`
	RiskConfidence    float64           `db:"risk_confidence" json:"risk_confidence"`
	FollowUpPriority  FollowUpPriority  `db:"follow_up_priority" json:"follow_up_priority,omitempty"`
	Status            string            `db:"status" json:"status"`
	Version           int               `db:"version" json:"version"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// Case statuses.
const (
	CaseStatusOpen    = "open"
	CaseStatusDecided = "decided"
)

// Clone returns a deep copy of the case so pipeline stages can mutate a
// working copy without committing partial results.
func (c *Case) Clone() *Case {
	cp := *c
	cp.Indicators = make(map[string]bool, len(c.Indicators))
	for k, v := range c.Indicators {
		cp.Indicators[k] = v
	}
	cp.ChronicConditions = append([]string(nil), c.ChronicConditions...)
	cp.Medications = append([]string(nil), c.Medications...)
	cp.DangerSigns = append([]string(nil), c.DangerSigns...)
	return &cp
}

// HasDangerSign reports whether the named sign is already on the case record.
func (c *Case) HasDangerSign(name string) bool {
	for _, s := range c.DangerSigns {
		if s == name {
			return true
		}
	}
	return false
}

// Finding is one detected danger sign. Findings are recomputed every run;
// their names accumulate on the case record and are never erased.
type Finding struct {
	Name       string          `json:"name"`
	Category   FindingCategory `json:"category"`
	Severity   FindingSeverity `json:"severity"`
	Source     DetectionSource `json:"source"`
	Confidence float64         `json:"confidence"`
}

// DetectionResult is the danger-sign detector's output for one run.
type DetectionResult struct {
	HasRedFlags       bool            `json:"has_red_flags"`
	Findings          []Finding       `json:"findings"`
	EmergencyOverride bool            `json:"emergency_override"`
	HighestSeverity   FindingSeverity `json:"highest_severity,omitempty"`
	FacilityHint      FacilityType    `json:"facility_hint,omitempty"`
}

// HasCritical reports whether any finding is critical.
func (d *DetectionResult) HasCritical() bool {
	for _, f := range d.Findings {
		if f.Severity == FindingCritical {
			return true
		}
	}
	return false
}

// FindingRecord is one row of the append-only finding log kept per case.
type FindingRecord struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	CaseID      uuid.UUID       `db:"case_id" json:"case_id"`
	CaseVersion int             `db:"case_version" json:"case_version"`
	Name        string          `db:"name" json:"name"`
	Category    FindingCategory `db:"category" json:"category"`
	Severity    FindingSeverity `db:"severity" json:"severity"`
	Source      DetectionSource `db:"source" json:"source"`
	Confidence  float64         `db:"confidence" json:"confidence"`
	DetectedAt  time.Time       `db:"detected_at" json:"detected_at"`
}

// Factor is one scored contribution, kept for auditability.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// RiskAssessment is the base scorer's output, consumed read-only downstream.
type RiskAssessment struct {
	Score      float64   `json:"score"`
	Level      RiskLevel `json:"level"`
	Confidence float64   `json:"confidence"`
	Factors    []Factor  `json:"factors"`
}

// ContextAdjustment is the clinical-context adjuster's output.
type ContextAdjustment struct {
	AgeModifier             float64   `json:"age_modifier"`
	PregnancyModifier       float64   `json:"pregnancy_modifier"`
	ChronicModifier         float64   `json:"chronic_modifier"`
	ImmuneModifier          float64   `json:"immune_modifier"`
	MedicationModifier      float64   `json:"medication_modifier"`
	Total                   float64   `json:"total"`
	AdjustedLevel           RiskLevel `json:"adjusted_level"`
	ConservativeBiasApplied bool      `json:"conservative_bias_applied"`
	Reasoning               string    `json:"reasoning"`
}

// Decision is the final, immutable triage outcome for one pipeline run.
// Its risk level is never lower than the assessment level of the same run.
type Decision struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	CaseID            uuid.UUID        `db:"case_id" json:"case_id"`
	CaseVersion       int              `db:"case_version" json:"case_version"`
	RiskLevel         RiskLevel        `db:"risk_level" json:"risk_level"`
	DecisionBasis     DecisionBasis    `db:"decision_basis" json:"decision_basis"`
	FollowUpPriority  FollowUpPriority `db:"follow_up_priority" json:"follow_up_priority"`
	FacilityType      FacilityType     `db:"facility_type" json:"facility_type"`
	ActionText        string           `db:"action_text" json:"action_text"`
	Disclaimers       []string         `db:"disclaimers" json:"disclaimers"`
	Reasoning         string           `db:"reasoning" json:"reasoning"`
	IsEmergency       bool             `db:"is_emergency" json:"is_emergency"`
	FollowUpRequired  bool             `db:"follow_up_required" json:"follow_up_required"`
	FollowUpTimeframe string           `db:"follow_up_timeframe" json:"follow_up_timeframe"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}

// PipelineResult bundles every stage output for one run.
type PipelineResult struct {
	Case       *Case              `json:"case"`
	Detection  *DetectionResult   `json:"detection"`
	Assessment *RiskAssessment    `json:"assessment"`
	Adjustment *ContextAdjustment `json:"adjustment"`
	Decision   *Decision          `json:"decision"`
}
