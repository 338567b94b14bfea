package triage

import (
	"math"
	"sort"
)

// Score bounds and level thresholds.
const (
	scoreFloor      = 0.05
	scoreCeiling    = 1.0
	highThreshold   = 0.7
	mediumThreshold = 0.4
	maxConfidence   = 0.95
)

// complaintBaseWeights is the per-category starting weight. Unknown or empty
// categories score the neutral weight so a missing table entry never fails.
var complaintBaseWeights = map[ComplaintCategory]float64{
	ComplaintChestPain:     0.45,
	ComplaintBleeding:      0.45,
	ComplaintConvulsions:   0.45,
	ComplaintBreathing:     0.40,
	ComplaintPregnancy:     0.35,
	ComplaintAbdominalPain: 0.30,
	ComplaintInjury:        0.30,
	ComplaintHeadache:      0.25,
	ComplaintVomiting:      0.25,
	ComplaintWeakness:      0.25,
	ComplaintDiarrhea:      0.22,
	ComplaintFever:         0.20,
	ComplaintOther:         0.20,
	ComplaintSkin:          0.12,
	ComplaintFeeding:       0.12,
}

const neutralComplaintWeight = 0.20

// ageMultipliers scale the complaint base weight for age extremes.
var ageMultipliers = map[AgeGroup]float64{
	AgeNewborn:   1.3,
	AgeInfant:    1.25,
	AgeChild1to5: 1.1,
	AgeElderly:   1.2,
}

var severityWeights = map[Severity]float64{
	SeverityMild:       0.0,
	SeverityModerate:   0.10,
	SeveritySevere:     0.25,
	SeverityVerySevere: 0.40,
}

var durationWeights = map[Duration]float64{
	DurationUnderHour:  0.0,
	DurationHours:      0.02,
	DurationOneDay:     0.03,
	Duration2to3Days:   0.05,
	Duration4to7Days:   0.08,
	Duration1to2Weeks:  0.10,
	DurationOver2Weeks: 0.12,
}

var progressionWeights = map[Progression]float64{
	ProgressionSudden:       0.10,
	ProgressionWorsening:    0.08,
	ProgressionIntermittent: 0.03,
	ProgressionStable:       0.0,
	ProgressionImproving:    0.0,
}

// indicatorWeights is the additive weight per true high-risk indicator.
// Indicators outside this table contribute nothing.
var indicatorWeights = map[string]float64{
	"unconscious":            0.35,
	"convulsions":            0.30,
	"crushing_chest_pain":    0.30,
	"severe_bleeding":        0.30,
	"blue_lips":              0.30,
	"unable_to_breathe":      0.30,
	"airway_obstruction":     0.30,
	"difficulty_breathing":   0.25,
	"cold_clammy_skin":       0.25,
	"chest_indrawing":        0.20,
	"stridor":                0.20,
	"unable_to_drink":        0.20,
	"stiff_neck":             0.20,
	"heavy_vaginal_bleeding": 0.25,
	"confusion":              0.18,
	"lethargy":               0.15,
	"high_fever":             0.15,
	"vomiting_everything":    0.15,
	"fast_breathing":         0.15,
	"sunken_eyes":            0.10,
	"no_urination":           0.12,
	"poor_feeding":           0.15,
	"bulging_fontanelle":     0.15,
	"reduced_fetal_movement": 0.15,
	"severe_swelling":        0.12,
	"blurred_vision":         0.10,
}

// indicatorCombos adds a bonus when specific indicator pairs co-occur.
var indicatorCombos = []struct {
	A, B  string
	Bonus float64
	Name  string
}{
	{"difficulty_breathing", "chest_indrawing", 0.15, "breathing_difficulty_with_chest_indrawing"},
	{"high_fever", "stiff_neck", 0.15, "fever_with_stiff_neck"},
	{"sunken_eyes", "no_urination", 0.10, "dehydration_pattern"},
	{"crushing_chest_pain", "cold_clammy_skin", 0.10, "cardiac_pattern"},
}

// ScoreRisk computes the additive base risk score for the case and converts
// it to a discrete level. The score is clamped to [0.05, 1.0]; confidence
// grows with distance from the nearest level threshold, capped at 0.95. The
// returned factor list is ranked by contribution for auditability.
func ScoreRisk(c *Case) *RiskAssessment {
	var factors []Factor

	base, ok := complaintBaseWeights[c.ComplaintCategory]
	if !ok {
		base = neutralComplaintWeight
	}
	mult := ageMultipliers[c.AgeGroup]
	if mult == 0 {
		mult = 1.0
	}
	score := base * mult
	factors = append(factors, Factor{Name: "complaint_" + string(complaintOrOther(c)), Weight: score})

	if w := severityWeights[c.Severity]; w > 0 {
		score += w
		factors = append(factors, Factor{Name: "severity_" + string(c.Severity), Weight: w})
	}
	if w := durationWeights[c.Duration]; w > 0 {
		score += w
		factors = append(factors, Factor{Name: "duration_" + string(c.Duration), Weight: w})
	}
	if w := progressionWeights[c.Progression]; w > 0 {
		score += w
		factors = append(factors, Factor{Name: "progression_" + string(c.Progression), Weight: w})
	}

	for name, set := range c.Indicators {
		if !set {
			continue
		}
		if w := indicatorWeights[name]; w > 0 {
			score += w
			factors = append(factors, Factor{Name: "indicator_" + name, Weight: w})
		}
	}
	for _, combo := range indicatorCombos {
		if c.Indicators[combo.A] && c.Indicators[combo.B] {
			score += combo.Bonus
			factors = append(factors, Factor{Name: "combo_" + combo.Name, Weight: combo.Bonus})
		}
	}

	switch c.PregnancyStatus {
	case PregnancyYes:
		score += 0.08
		factors = append(factors, Factor{Name: "pregnancy_confirmed", Weight: 0.08})
	case PregnancyPossible:
		score += 0.05
		factors = append(factors, Factor{Name: "pregnancy_possible", Weight: 0.05})
	}
	if len(c.ChronicConditions) > 0 {
		score += 0.05
		factors = append(factors, Factor{Name: "chronic_conditions", Weight: 0.05})
	}
	if c.Immunocompromised {
		score += 0.05
		factors = append(factors, Factor{Name: "immunocompromised", Weight: 0.05})
	}
	if len(c.Medications) > 0 {
		score += 0.03
		factors = append(factors, Factor{Name: "active_medication", Weight: 0.03})
	}

	score = clamp(score, scoreFloor, scoreCeiling)

	level := RiskLow
	switch {
	case score >= highThreshold:
		level = RiskHigh
	case score >= mediumThreshold:
		level = RiskMedium
	}

	sort.Slice(factors, func(i, j int) bool {
		if factors[i].Weight != factors[j].Weight {
			return factors[i].Weight > factors[j].Weight
		}
		return factors[i].Name < factors[j].Name
	})

	return &RiskAssessment{
		Score:      score,
		Level:      level,
		Confidence: scoreConfidence(score),
		Factors:    factors,
	}
}

func complaintOrOther(c *Case) ComplaintCategory {
	if validComplaints[c.ComplaintCategory] {
		return c.ComplaintCategory
	}
	return ComplaintOther
}

// scoreConfidence maps distance from the nearest level threshold onto
// [0.5, 0.95]: confidence = 0.5 + 1.5 * distance, capped.
func scoreConfidence(score float64) float64 {
	dist := math.Min(math.Abs(score-mediumThreshold), math.Abs(score-highThreshold))
	return math.Min(maxConfidence, 0.5+1.5*dist)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
