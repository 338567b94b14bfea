package triage

// dangerSign is one catalog entry. AgeGroups lists the oldest groups the sign
// applies to; through the younger-to-older hierarchy a sign tagged for an age
// group also covers every younger patient. An empty list applies to all ages.
type dangerSign struct {
	Name      string
	Category  FindingCategory
	Severity  FindingSeverity
	AgeGroups []AgeGroup
	Keywords  []string
}

// signCatalog is the fixed WHO-ABCD-aligned danger-sign catalog. Order is
// stable so detection output is deterministic.
var signCatalog = []dangerSign{
	{
		Name:     "airway_obstruction",
		Category: CategoryAirway,
		Severity: FindingCritical,
		Keywords: []string{"choking", "cannot swallow", "throat closing", "something stuck"},
	},
	{
		Name:     "unable_to_breathe",
		Category: CategoryBreathing,
		Severity: FindingCritical,
		Keywords: []string{"cannot breathe", "can't breathe", "gasping", "stopped breathing"},
	},
	{
		Name:     "blue_lips",
		Category: CategoryBreathing,
		Severity: FindingCritical,
		Keywords: []string{"blue lips", "lips turning blue", "turning blue"},
	},
	{
		Name:      "chest_indrawing",
		Category:  CategoryBreathing,
		Severity:  FindingUrgent,
		AgeGroups: []AgeGroup{AgeChild6to12},
		Keywords:  []string{"chest pulling in", "ribs showing", "chest indrawing"},
	},
	{
		Name:      "stridor",
		Category:  CategoryBreathing,
		Severity:  FindingUrgent,
		AgeGroups: []AgeGroup{AgeChild6to12},
		Keywords:  []string{"noisy breathing", "harsh sound when breathing"},
	},
	{
		Name:     "fast_breathing",
		Category: CategoryBreathing,
		Severity: FindingUrgent,
		Keywords: []string{"breathing fast", "breathing very fast", "rapid breathing"},
	},
	{
		Name:     "severe_bleeding",
		Category: CategoryCirculation,
		Severity: FindingCritical,
		Keywords: []string{"bleeding a lot", "blood everywhere", "heavy bleeding", "won't stop bleeding"},
	},
	{
		Name:     "crushing_chest_pain",
		Category: CategoryCirculation,
		Severity: FindingCritical,
		Keywords: []string{"crushing chest", "chest pressure", "pain spreading to arm", "elephant on chest"},
	},
	{
		Name:     "signs_of_shock",
		Category: CategoryCirculation,
		Severity: FindingCritical,
		Keywords: []string{"cold and clammy", "very pale", "weak pulse"},
	},
	{
		Name:     "severe_dehydration",
		Category: CategoryCirculation,
		Severity: FindingUrgent,
		Keywords: []string{"sunken eyes", "no tears", "not urinating", "very dry mouth"},
	},
	{
		Name:     "unconscious",
		Category: CategoryDisability,
		Severity: FindingCritical,
		Keywords: []string{"unconscious", "not waking", "unresponsive", "passed out"},
	},
	{
		Name:     "convulsions",
		Category: CategoryDisability,
		Severity: FindingCritical,
		Keywords: []string{"convulsion", "seizure", "fitting", "shaking uncontrollably"},
	},
	{
		Name:     "stiff_neck",
		Category: CategoryDisability,
		Severity: FindingUrgent,
		Keywords: []string{"stiff neck", "cannot bend neck", "neck pain with fever"},
	},
	{
		Name:     "confusion",
		Category: CategoryDisability,
		Severity: FindingUrgent,
		Keywords: []string{"confused", "not making sense", "doesn't recognize"},
	},
	{
		Name:      "unable_to_drink",
		Category:  CategoryDisability,
		Severity:  FindingUrgent,
		AgeGroups: []AgeGroup{AgeChild6to12},
		Keywords:  []string{"cannot drink", "refuses to drink", "vomits everything"},
	},
	{
		Name:      "lethargy",
		Category:  CategoryAgeSpecific,
		Severity:  FindingUrgent,
		AgeGroups: []AgeGroup{AgeChild1to5},
		Keywords:  []string{"very sleepy", "floppy", "not moving", "difficult to wake"},
	},
	{
		Name:      "poor_feeding",
		Category:  CategoryAgeSpecific,
		Severity:  FindingUrgent,
		AgeGroups: []AgeGroup{AgeInfant},
		Keywords:  []string{"not feeding", "refusing breast", "stopped feeding", "not sucking"},
	},
	{
		Name:      "newborn_fever",
		Category:  CategoryAgeSpecific,
		Severity:  FindingCritical,
		AgeGroups: []AgeGroup{AgeInfant},
		Keywords:  []string{"baby hot", "newborn fever", "baby burning"},
	},
	{
		Name:      "bulging_fontanelle",
		Category:  CategoryAgeSpecific,
		Severity:  FindingUrgent,
		AgeGroups: []AgeGroup{AgeInfant},
		Keywords:  []string{"soft spot bulging", "swollen soft spot"},
	},
	{
		Name:     "heavy_vaginal_bleeding",
		Category: CategoryPregnancy,
		Severity: FindingCritical,
		Keywords: []string{"heavy vaginal bleeding", "soaking pads", "bleeding while pregnant"},
	},
	{
		Name:     "severe_pregnancy_pain",
		Category: CategoryPregnancy,
		Severity: FindingUrgent,
		Keywords: []string{"severe belly pain pregnant", "constant abdominal pain pregnant"},
	},
	{
		Name:     "reduced_fetal_movement",
		Category: CategoryPregnancy,
		Severity: FindingUrgent,
		Keywords: []string{"baby not moving", "baby stopped kicking", "less movement"},
	},
	{
		Name:     "preeclampsia_signs",
		Category: CategoryPregnancy,
		Severity: FindingUrgent,
		Keywords: []string{"severe headache swelling", "blurred vision pregnant", "swollen face and hands"},
	},
	{
		Name:     "eclampsia",
		Category: CategoryPregnancy,
		Severity: FindingCritical,
		Keywords: []string{"fits while pregnant", "seizure pregnant"},
	},
	{
		Name:     "high_persistent_fever",
		Category: CategoryDisability,
		Severity: FindingUrgent,
		Keywords: []string{"very high fever", "fever not going down", "burning up for days"},
	},
	{
		Name:     "prolonged_illness",
		Category: CategoryDisability,
		Severity: FindingWarning,
		Keywords: []string{},
	},
}

var signIndex = func() map[string]dangerSign {
	m := make(map[string]dangerSign, len(signCatalog))
	for _, s := range signCatalog {
		m[s.Name] = s
	}
	return m
}()

// indicatorSigns maps structured symptom-indicator names onto catalog signs.
// Most indicators are named after their sign; aliases cover channel menus
// that collect the same evidence under a different key.
var indicatorSigns = map[string]string{
	"airway_obstruction":     "airway_obstruction",
	"unable_to_breathe":      "unable_to_breathe",
	"difficulty_breathing":   "fast_breathing",
	"blue_lips":              "blue_lips",
	"chest_indrawing":        "chest_indrawing",
	"stridor":                "stridor",
	"fast_breathing":         "fast_breathing",
	"severe_bleeding":        "severe_bleeding",
	"crushing_chest_pain":    "crushing_chest_pain",
	"cold_clammy_skin":       "signs_of_shock",
	"sunken_eyes":            "severe_dehydration",
	"no_urination":           "severe_dehydration",
	"unconscious":            "unconscious",
	"convulsions":            "convulsions",
	"stiff_neck":             "stiff_neck",
	"confusion":              "confusion",
	"unable_to_drink":        "unable_to_drink",
	"vomiting_everything":    "unable_to_drink",
	"lethargy":               "lethargy",
	"poor_feeding":           "poor_feeding",
	"high_fever":             "high_persistent_fever",
	"bulging_fontanelle":     "bulging_fontanelle",
	"heavy_vaginal_bleeding": "heavy_vaginal_bleeding",
	"reduced_fetal_movement": "reduced_fetal_movement",
	"severe_swelling":        "preeclampsia_signs",
	"blurred_vision":         "preeclampsia_signs",
}

// escalationSigns maps complaint categories to the sign implied when the
// reported severity is very_severe.
var escalationSigns = map[ComplaintCategory]string{
	ComplaintBreathing:   "unable_to_breathe",
	ComplaintChestPain:   "crushing_chest_pain",
	ComplaintBleeding:    "severe_bleeding",
	ComplaintConvulsions: "convulsions",
}

// ageApplies reports whether a sign applies to the given age group. A sign
// with no age restriction applies to everyone; otherwise it covers the listed
// groups and all younger ones.
func (s dangerSign) ageApplies(age AgeGroup) bool {
	if len(s.AgeGroups) == 0 {
		return true
	}
	r := ageRank(age)
	if r < 0 {
		return false
	}
	for _, g := range s.AgeGroups {
		if r <= ageRank(g) {
			return true
		}
	}
	return false
}
