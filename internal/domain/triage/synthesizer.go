package triage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// synthInput bundles everything the override rules may consult.
type synthInput struct {
	Case       *Case
	Detection  *DetectionResult
	Assessment *RiskAssessment
	Adjustment *ContextAdjustment
}

// overrideRule is one (predicate, resolution) pair. Rules are evaluated in
// fixed priority order; the first rule that resolves wins and is recorded as
// the decision basis. Keeping the list as data keeps the order auditable.
type overrideRule struct {
	Basis   DecisionBasis
	Resolve func(in synthInput) (RiskLevel, bool)
}

var overrideRules = []overrideRule{
	{
		Basis: BasisRedFlagOverride,
		Resolve: func(in synthInput) (RiskLevel, bool) {
			if !in.Detection.HasRedFlags {
				return "", false
			}
			if in.Detection.EmergencyOverride || in.Detection.HighestSeverity == FindingCritical {
				return RiskHigh, true
			}
			return RiskMedium, true
		},
	},
	{
		Basis: BasisAgeRiskModifier,
		Resolve: func(in synthInput) (RiskLevel, bool) {
			if in.Assessment.Level != RiskLow {
				return "", false
			}
			switch in.Case.AgeGroup {
			case AgeNewborn, AgeInfant:
				return RiskMedium, true
			case AgeElderly:
				switch in.Case.ComplaintCategory {
				case ComplaintChestPain, ComplaintBreathing, ComplaintHeadache:
					return RiskMedium, true
				}
			}
			return "", false
		},
	},
	{
		Basis: BasisClinicalAdjustment,
		Resolve: func(in synthInput) (RiskLevel, bool) {
			adjusted := in.Adjustment.AdjustedLevel
			if adjusted == in.Assessment.Level || adjusted.Below(in.Assessment.Level) {
				return "", false
			}
			return adjusted, true
		},
	},
	{
		Basis: BasisComplaintSpecific,
		Resolve: func(in synthInput) (RiskLevel, bool) {
			if in.Assessment.Level != RiskLow {
				return "", false
			}
			switch in.Case.ComplaintCategory {
			case ComplaintChestPain, ComplaintBleeding:
				return RiskMedium, true
			}
			return "", false
		},
	},
	{
		Basis: BasisAIPrimary,
		Resolve: func(in synthInput) (RiskLevel, bool) {
			return in.Assessment.Level, true
		},
	},
}

// facilityTable maps (risk level, red flags present) to a facility type.
// Every pair is defined; completeness is asserted by tests.
var facilityTable = map[RiskLevel]map[bool]FacilityType{
	RiskLow:    {false: FacilitySelfCare, true: FacilityClinic},
	RiskMedium: {false: FacilityHealthCenter, true: FacilityHospital},
	RiskHigh:   {false: FacilityHospital, true: FacilityEmergency},
}

var priorityByLevel = map[RiskLevel]FollowUpPriority{
	RiskLow:    FollowUpRoutine,
	RiskMedium: FollowUpUrgent,
	RiskHigh:   FollowUpImmediate,
}

var timeframeByPriority = map[FollowUpPriority]string{
	FollowUpImmediate: "now — do not wait",
	FollowUpUrgent:    "within 24 hours",
	FollowUpRoutine:   "within 3 days if symptoms persist",
}

// Synthesize resolves the final decision from all prior stage outputs through
// the ordered override-rule table. The returned decision's risk level is
// never lower than the assessment level of the same run.
func Synthesize(c *Case, detection *DetectionResult, assessment *RiskAssessment, adjustment *ContextAdjustment) *Decision {
	in := synthInput{Case: c, Detection: detection, Assessment: assessment, Adjustment: adjustment}

	var (
		level RiskLevel
		basis DecisionBasis
	)
	for _, rule := range overrideRules {
		if resolved, ok := rule.Resolve(in); ok {
			level, basis = resolved, rule.Basis
			break
		}
	}

	// A resolved level below the score-derived level is kept at the higher
	// level under the conservative-bias contract.
	if level.Below(assessment.Level) {
		level = assessment.Level
		basis = BasisConservativeBias
	}

	priority := priorityByLevel[level]
	if (c.AgeGroup == AgeNewborn || c.AgeGroup == AgeInfant) && level == RiskMedium {
		// Newborn/infant medium-risk escalation: never below urgent.
		if priority == FollowUpRoutine {
			priority = FollowUpUrgent
		}
	}

	facility := facilityTable[level][detection.HasRedFlags]
	switch c.ComplaintCategory {
	case ComplaintPregnancy, ComplaintChestPain:
		if !level.Below(RiskMedium) {
			facility = MaxFacility(facility, FacilityHospital)
		}
	}
	if detection.FacilityHint != "" {
		facility = MaxFacility(facility, detection.FacilityHint)
	}

	d := &Decision{
		ID:                uuid.New(),
		CaseID:            c.ID,
		CaseVersion:       c.Version,
		RiskLevel:         level,
		DecisionBasis:     basis,
		FollowUpPriority:  priority,
		FacilityType:      facility,
		ActionText:        actionText(c, level, detection),
		Disclaimers:       disclaimers(level, c.AgeGroup),
		Reasoning:         decisionReasoning(basis, level, assessment, adjustment, detection),
		IsEmergency:       detection.EmergencyOverride || level == RiskHigh && detection.HasRedFlags,
		FollowUpRequired:  level != RiskLow || detection.HasRedFlags,
		FollowUpTimeframe: timeframeByPriority[priority],
	}
	return d
}

// actionTemplates holds complaint-specific guidance per risk level.
// Complaint-specific text takes precedence over the generic fallback.
var actionTemplates = map[ComplaintCategory]map[RiskLevel]string{
	ComplaintFever: {
		RiskLow:    "Keep the patient cool and hydrated. Use paracetamol for comfort and watch for any danger signs.",
		RiskMedium: "Visit a health facility today for assessment. Keep fluids up and monitor the fever closely.",
		RiskHigh:   "Go to a hospital now. A high-risk fever needs urgent examination and testing.",
	},
	ComplaintBreathing: {
		RiskLow:    "Rest in an upright position and avoid smoke. Seek care if breathing becomes harder.",
		RiskMedium: "Visit a health facility today. Breathing problems can worsen quickly.",
		RiskHigh:   "Seek emergency care immediately. Difficulty breathing at this level is dangerous.",
	},
	ComplaintChestPain: {
		RiskLow:    "Rest and avoid exertion. If the pain returns, spreads, or worsens, seek care the same day.",
		RiskMedium: "Go to a hospital today. Chest pain should always be examined by a clinician.",
		RiskHigh:   "Call for emergency transport or go to the nearest emergency unit now. Do not drive yourself.",
	},
	ComplaintBleeding: {
		RiskLow:    "Apply firm, clean pressure to the wound and keep it elevated. Seek care if bleeding restarts.",
		RiskMedium: "Go to a health facility today while keeping pressure on the bleeding site.",
		RiskHigh:   "Apply firm pressure and get emergency care now. Significant blood loss is life-threatening.",
	},
	ComplaintDiarrhea: {
		RiskLow:    "Give oral rehydration solution after each loose stool and continue normal feeding.",
		RiskMedium: "Start oral rehydration now and visit a health facility today, especially for children.",
		RiskHigh:   "Go to a hospital now and continue small sips of oral rehydration on the way.",
	},
	ComplaintHeadache: {
		RiskLow:    "Rest in a quiet place, drink water, and use simple pain relief if needed.",
		RiskMedium: "Visit a health facility today, especially if the headache is unusual for the patient.",
		RiskHigh:   "Seek emergency care now. A sudden or very severe headache needs urgent assessment.",
	},
	ComplaintPregnancy: {
		RiskLow:    "Continue routine antenatal visits and rest. Report any bleeding, pain, or reduced movement.",
		RiskMedium: "Go to a hospital with maternity services today for a check of mother and baby.",
		RiskHigh:   "Go to a hospital with maternity services immediately.",
	},
	ComplaintConvulsions: {
		RiskLow:    "Record when the episode happened and how long it lasted, and book a clinic review.",
		RiskMedium: "Visit a health facility today. Any new convulsion needs clinical review.",
		RiskHigh:   "Protect the patient from injury, lay them on their side, and get emergency care now.",
	},
}

var genericActions = map[RiskLevel]string{
	RiskLow:    "Monitor the symptoms at home and rest. Seek care if they worsen or new symptoms appear.",
	RiskMedium: "Visit a health facility today for assessment.",
	RiskHigh:   "Seek urgent care at a hospital now.",
}

var ageCautions = map[AgeGroup]string{
	AgeNewborn: "Newborns can deteriorate very quickly — treat any change seriously.",
	AgeInfant:  "Young infants can worsen fast — do not wait to see if symptoms pass.",
	AgeElderly: "Older patients may show milder signs of serious illness than expected.",
}

func actionText(c *Case, level RiskLevel, detection *DetectionResult) string {
	var b strings.Builder
	if caution, ok := ageCautions[c.AgeGroup]; ok {
		b.WriteString(caution)
		b.WriteString(" ")
	}
	if len(detection.Findings) > 0 {
		names := make([]string, 0, len(detection.Findings))
		for _, f := range detection.Findings {
			names = append(names, strings.ReplaceAll(f.Name, "_", " "))
		}
		b.WriteString("Danger signs noted: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(". ")
	}
	if byLevel, ok := actionTemplates[c.ComplaintCategory]; ok {
		if text, ok := byLevel[level]; ok {
			b.WriteString(text)
			return b.String()
		}
	}
	b.WriteString(genericActions[level])
	return b.String()
}

var baseDisclaimers = []string{
	"This guidance is based only on the information you provided.",
	"It is not a medical diagnosis and does not replace examination by a health worker.",
	"If symptoms change or worsen at any time, seek care immediately.",
}

var levelDisclaimers = map[RiskLevel]string{
	RiskLow:    "Low risk does not mean no risk — return if anything changes.",
	RiskMedium: "Do not delay the recommended visit even if symptoms seem to settle.",
	RiskHigh:   "Delaying care at this risk level can be life-threatening.",
}

var ageDisclaimers = map[AgeGroup]string{
	AgeNewborn:   "Any illness in a baby under one month should be reviewed by a health worker.",
	AgeInfant:    "Infants should be reassessed promptly if feeding or alertness changes.",
	AgeChild1to5: "Watch young children closely for drinking, alertness, and breathing changes.",
	AgeElderly:   "Arrange for someone to accompany an older patient to the facility if possible.",
}

func disclaimers(level RiskLevel, age AgeGroup) []string {
	out := append([]string(nil), baseDisclaimers...)
	if d, ok := levelDisclaimers[level]; ok {
		out = append(out, d)
	}
	if d, ok := ageDisclaimers[age]; ok {
		out = append(out, d)
	}
	return out
}

func decisionReasoning(basis DecisionBasis, level RiskLevel, assessment *RiskAssessment, adjustment *ContextAdjustment, detection *DetectionResult) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("final risk %s via %s", level, basis))
	parts = append(parts, fmt.Sprintf("base score %.2f (%s, confidence %.2f)", assessment.Score, assessment.Level, assessment.Confidence))
	if adjustment.Total > 0 {
		parts = append(parts, adjustment.Reasoning)
	}
	if detection.HasRedFlags {
		parts = append(parts, fmt.Sprintf("%d danger sign(s), highest severity %s", len(detection.Findings), detection.HighestSeverity))
	}
	return strings.Join(parts, "; ")
}
