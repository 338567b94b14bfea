package triage

import (
	"fmt"
	"strings"
)

// maxTotalAdjustment caps the summed context modifiers.
const maxTotalAdjustment = 0.5

// levelStepSize is the adjustment mass needed to move the risk level up one
// step.
const levelStepSize = 0.15

var ageContextModifiers = map[AgeGroup]float64{
	AgeNewborn:   0.15,
	AgeInfant:    0.12,
	AgeElderly:   0.10,
	AgeChild1to5: 0.05,
}

// chronicConditionModifiers weights each recognized chronic condition.
// Unrecognized conditions contribute the small generic weight.
var chronicConditionModifiers = map[string]float64{
	"heart_disease":  0.10,
	"hiv":            0.10,
	"diabetes":       0.08,
	"asthma":         0.08,
	"tb":             0.08,
	"kidney_disease": 0.08,
	"sickle_cell":    0.08,
	"hypertension":   0.06,
	"epilepsy":       0.06,
}

const genericChronicModifier = 0.04

// chronicSynergies adds a bonus when a chronic condition interacts with the
// presenting complaint.
var chronicSynergies = map[string]map[ComplaintCategory]float64{
	"heart_disease": {ComplaintChestPain: 0.10, ComplaintBreathing: 0.08},
	"asthma":        {ComplaintBreathing: 0.10},
	"hypertension":  {ComplaintHeadache: 0.08, ComplaintChestPain: 0.06},
	"diabetes":      {ComplaintSkin: 0.05, ComplaintWeakness: 0.05},
	"sickle_cell":   {ComplaintWeakness: 0.08},
	"epilepsy":      {ComplaintConvulsions: 0.10},
}

// medicationRisks adds complaint-specific medication hazards on top of the
// generic active-medication contribution.
var medicationRisks = map[string]map[ComplaintCategory]float64{
	"blood_thinners": {ComplaintBleeding: 0.12, ComplaintInjury: 0.08},
	"steroids":       {ComplaintFever: 0.05},
	"insulin":        {ComplaintWeakness: 0.06},
}

// AdjustContext computes the five non-negative clinical-context modifiers,
// caps their sum, and maps it onto a level delta over the scorer's level.
// The adjusted level is never lower than the scorer's level; when the
// detector reported an emergency override the adjusted level is forced high.
func AdjustContext(c *Case, assessment *RiskAssessment, detection *DetectionResult) *ContextAdjustment {
	adj := &ContextAdjustment{AdjustedLevel: assessment.Level}

	adj.AgeModifier = ageContextModifiers[c.AgeGroup]
	adj.PregnancyModifier = pregnancyModifier(c)
	adj.ChronicModifier = chronicModifier(c)
	if c.Immunocompromised {
		adj.ImmuneModifier = 0.10
	}
	adj.MedicationModifier = medicationModifier(c)

	total := adj.AgeModifier + adj.PregnancyModifier + adj.ChronicModifier +
		adj.ImmuneModifier + adj.MedicationModifier
	if total > maxTotalAdjustment {
		total = maxTotalAdjustment
	}
	adj.Total = total

	steps := int(total / levelStepSize)
	level := assessment.Level
	for i := 0; i < steps; i++ {
		level = stepUp(level)
	}

	// Conservative bias: never report a level below the scorer's. Modifiers
	// are non-negative so a lower raw level only arises from table drift,
	// but the invariant is enforced rather than assumed.
	if level.Below(assessment.Level) {
		level = assessment.Level
		adj.ConservativeBiasApplied = true
	}

	if detection != nil && detection.EmergencyOverride {
		level = RiskHigh
	}
	adj.AdjustedLevel = level
	adj.Reasoning = adjustmentReasoning(adj)
	return adj
}

func pregnancyModifier(c *Case) float64 {
	var base float64
	switch {
	case c.Severity.AtLeast(SeveritySevere):
		base = 0.15
	case c.Severity == SeverityModerate:
		base = 0.10
	default:
		base = 0.05
	}
	switch c.PregnancyStatus {
	case PregnancyYes:
		return base
	case PregnancyPossible:
		return base / 2
	default:
		return 0
	}
}

func chronicModifier(c *Case) float64 {
	var total float64
	for _, cond := range c.ChronicConditions {
		w, ok := chronicConditionModifiers[cond]
		if !ok {
			w = genericChronicModifier
		}
		total += w
		if synergy, ok := chronicSynergies[cond]; ok {
			total += synergy[c.ComplaintCategory]
		}
	}
	return total
}

func medicationModifier(c *Case) float64 {
	if len(c.Medications) == 0 {
		return 0
	}
	total := 0.03
	for _, med := range c.Medications {
		if hazard, ok := medicationRisks[med]; ok {
			total += hazard[c.ComplaintCategory]
		}
	}
	return total
}

func stepUp(l RiskLevel) RiskLevel {
	switch l {
	case RiskLow:
		return RiskMedium
	case RiskMedium:
		return RiskHigh
	default:
		return RiskHigh
	}
}

// adjustmentReasoning assembles a human-readable summary from the non-zero
// factors only.
func adjustmentReasoning(adj *ContextAdjustment) string {
	var parts []string
	appendPart := func(label string, v float64) {
		if v > 0 {
			parts = append(parts, fmt.Sprintf("%s +%.2f", label, v))
		}
	}
	appendPart("age risk", adj.AgeModifier)
	appendPart("pregnancy", adj.PregnancyModifier)
	appendPart("chronic conditions", adj.ChronicModifier)
	appendPart("immunocompromise", adj.ImmuneModifier)
	appendPart("medication risk", adj.MedicationModifier)
	if len(parts) == 0 {
		return "no clinical context adjustment"
	}
	return "context adjustment: " + strings.Join(parts, ", ")
}
